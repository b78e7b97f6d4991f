package mf

import "github.com/thesyncim/mf/com"

// Interface identifiers.
var (
	IID_IMFTransform            = com.MustParseGUID("bf94c121-5b05-4e6f-8000-ba598961414d")
	IID_IMFAttributes           = com.MustParseGUID("2cd2d921-c447-44a7-a13c-4adabfc247e3")
	IID_IMFMediaType            = com.MustParseGUID("44ae0fa8-ea31-4109-8d2e-4cae4997c555")
	IID_IMFSample               = com.MustParseGUID("c40a00f2-b93a-4d80-ae8c-5a1c634f58e4")
	IID_IMFMediaBuffer          = com.MustParseGUID("045fa593-8799-42b8-bc8d-8968c6453507")
	IID_IMFMediaEvent           = com.MustParseGUID("df598932-f10c-4e39-bba2-c308f101daa3")
	IID_IMFDXGIDeviceManager    = com.MustParseGUID("eb533d5d-2db6-40f8-97a9-494692014f07")
	IID_IDirect3DDeviceManager9 = com.MustParseGUID("a0cade0f-06d5-4cf4-a1c7-f3cdd725aa75")
)

// Media type attribute keys.
var (
	MF_MT_MAJOR_TYPE               = com.MustParseGUID("48eba18e-f8c9-4687-bf11-0a74c9f96a8f")
	MF_MT_SUBTYPE                  = com.MustParseGUID("f7e34c9a-42e8-4714-b74b-cb29d72c35e5")
	MF_MT_FRAME_SIZE               = com.MustParseGUID("1652c33d-d6b2-4012-b834-72030849a37d")
	MF_MT_AUDIO_SAMPLES_PER_SECOND = com.MustParseGUID("5faeeae7-0290-4c31-9e8a-c534f68d9dba")
	MF_MT_AUDIO_NUM_CHANNELS       = com.MustParseGUID("37e48bf5-645e-4c5b-89de-ada9e29b696a")
)

// Major types.
var (
	MFMediaType_Video = FourCCSubtype(0x73646976) // 'vids'
	MFMediaType_Audio = FourCCSubtype(0x73647561) // 'auds'
)

// FourCCSubtype returns the media subtype GUID built from a FOURCC or wave
// format tag: {XXXXXXXX-0000-0010-8000-00AA00389B71}.
func FourCCSubtype(fourcc uint32) com.GUID {
	return com.GUID{
		Data1: fourcc,
		Data2: 0x0000,
		Data3: 0x0010,
		Data4: [8]byte{0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71},
	}
}

// FourCC packs a four character code in little-endian order.
func FourCC(code string) uint32 {
	var v uint32
	for i := 0; i < 4 && i < len(code); i++ {
		v |= uint32(code[i]) << (8 * i)
	}
	return v
}
