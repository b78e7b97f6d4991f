package mf

import "github.com/thesyncim/mf/com"

// Media Foundation status codes used by the transform protocol. The values are
// fixed by mferror.h.
const (
	MF_E_BUFFERTOOSMALL            com.Result = -0x3FF2C94F // 0xC00D36B1
	MF_E_INVALIDREQUEST            com.Result = -0x3FF2C94E // 0xC00D36B2
	MF_E_INVALIDSTREAMNUMBER       com.Result = -0x3FF2C94D // 0xC00D36B3
	MF_E_INVALIDMEDIATYPE          com.Result = -0x3FF2C94C // 0xC00D36B4
	MF_E_NOTACCEPTING              com.Result = -0x3FF2C94B // 0xC00D36B5
	MF_E_NO_MORE_TYPES             com.Result = -0x3FF2C947 // 0xC00D36B9
	MF_E_TRANSFORM_TYPE_NOT_SET    com.Result = -0x3FF292A0 // 0xC00D6D60
	MF_E_TRANSFORM_STREAM_CHANGE   com.Result = -0x3FF2929F // 0xC00D6D61
	MF_E_TRANSFORM_NEED_MORE_INPUT com.Result = -0x3FF2928E // 0xC00D6D72
)

func init() {
	for r, name := range map[com.Result]string{
		MF_E_BUFFERTOOSMALL:            "MF_E_BUFFERTOOSMALL",
		MF_E_INVALIDREQUEST:            "MF_E_INVALIDREQUEST",
		MF_E_INVALIDSTREAMNUMBER:       "MF_E_INVALIDSTREAMNUMBER",
		MF_E_INVALIDMEDIATYPE:          "MF_E_INVALIDMEDIATYPE",
		MF_E_NOTACCEPTING:              "MF_E_NOTACCEPTING",
		MF_E_NO_MORE_TYPES:             "MF_E_NO_MORE_TYPES",
		MF_E_TRANSFORM_TYPE_NOT_SET:    "MF_E_TRANSFORM_TYPE_NOT_SET",
		MF_E_TRANSFORM_STREAM_CHANGE:   "MF_E_TRANSFORM_STREAM_CHANGE",
		MF_E_TRANSFORM_NEED_MORE_INPUT: "MF_E_TRANSFORM_NEED_MORE_INPUT",
	} {
		com.RegisterResultName(r, name)
	}
}
