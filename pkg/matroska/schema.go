package matroska

import "mkvtool/pkg/ebml"

// Schema describes the payload types of all known elements.
var Schema = ebml.Merge(ebml.HeaderSchema, ebml.Schema{
	IDSegment:     ebml.TypeMaster,
	IDSeekHead:    ebml.TypeMaster,
	IDInfo:        ebml.TypeMaster,
	IDTracks:      ebml.TypeMaster,
	IDCluster:     ebml.TypeMaster,
	IDCues:        ebml.TypeMaster,
	IDAttachments: ebml.TypeMaster,
	IDChapters:    ebml.TypeMaster,
	IDTags:        ebml.TypeMaster,

	IDSeek:         ebml.TypeMaster,
	IDSeekID:       ebml.TypeBinary,
	IDSeekPosition: ebml.TypeUint,

	IDSegmentUID:       ebml.TypeBinary,
	IDSegmentFilename:  ebml.TypeUnicode,
	IDPrevUID:          ebml.TypeBinary,
	IDPrevFilename:     ebml.TypeUnicode,
	IDNextUID:          ebml.TypeBinary,
	IDNextFilename:     ebml.TypeUnicode,
	IDSegmentFamily:    ebml.TypeBinary,
	IDChapterTranslate: ebml.TypeMaster,
	IDTimestampScale:   ebml.TypeUint,
	IDDuration:         ebml.TypeFloat,
	IDDateUTC:          ebml.TypeDate,
	IDTitle:            ebml.TypeUnicode,
	IDMuxingApp:        ebml.TypeUnicode,
	IDWritingApp:       ebml.TypeUnicode,

	IDTimestamp:         ebml.TypeUint,
	IDPosition:          ebml.TypeUint,
	IDPrevSize:          ebml.TypeUint,
	IDSilentTracks:      ebml.TypeMaster,
	IDSilentTrackNumber: ebml.TypeUint,
	IDSimpleBlock:       ebml.TypeBinary,
	IDBlockGroup:        ebml.TypeMaster,
	IDBlock:             ebml.TypeBinary,
	IDBlockDuration:     ebml.TypeUint,
	IDReferenceBlock:    ebml.TypeInt,
	IDDiscardPadding:    ebml.TypeInt,
	IDCodecState:        ebml.TypeBinary,

	IDTrackEntry:              ebml.TypeMaster,
	IDTrackNumber:             ebml.TypeUint,
	IDTrackUID:                ebml.TypeUint,
	IDTrackType:               ebml.TypeUint,
	IDFlagEnabled:             ebml.TypeUint,
	IDFlagDefault:             ebml.TypeUint,
	IDFlagForced:              ebml.TypeUint,
	IDFlagLacing:              ebml.TypeUint,
	IDDefaultDuration:         ebml.TypeUint,
	IDName:                    ebml.TypeUnicode,
	IDLanguage:                ebml.TypeString,
	IDCodecID:                 ebml.TypeString,
	IDCodecPrivate:            ebml.TypeBinary,
	IDCodecName:               ebml.TypeUnicode,
	IDCodecDelay:              ebml.TypeUint,
	IDSeekPreRoll:             ebml.TypeUint,
	IDContentEncodings:        ebml.TypeMaster,
	IDVideo:                   ebml.TypeMaster,
	IDPixelWidth:              ebml.TypeUint,
	IDPixelHeight:             ebml.TypeUint,
	IDDisplayWidth:            ebml.TypeUint,
	IDDisplayHeight:           ebml.TypeUint,
	IDFlagInterlaced:          ebml.TypeUint,
	IDAudio:                   ebml.TypeMaster,
	IDSamplingFrequency:       ebml.TypeFloat,
	IDOutputSamplingFrequency: ebml.TypeFloat,
	IDChannels:                ebml.TypeUint,
	IDBitDepth:                ebml.TypeUint,

	IDCuePoint:            ebml.TypeMaster,
	IDCueTime:             ebml.TypeUint,
	IDCueTrackPositions:   ebml.TypeMaster,
	IDCueTrack:            ebml.TypeUint,
	IDCueClusterPosition:  ebml.TypeUint,
	IDCueRelativePosition: ebml.TypeUint,
	IDCueDuration:         ebml.TypeUint,
	IDCueBlockNumber:      ebml.TypeUint,

	IDAttachedFile:    ebml.TypeMaster,
	IDFileDescription: ebml.TypeUnicode,
	IDFileName:        ebml.TypeUnicode,
	IDFileMimeType:    ebml.TypeString,
	IDFileData:        ebml.TypeBinary,
	IDFileUID:         ebml.TypeUint,

	IDEditionEntry:         ebml.TypeMaster,
	IDEditionUID:           ebml.TypeUint,
	IDEditionFlagHidden:    ebml.TypeUint,
	IDEditionFlagDefault:   ebml.TypeUint,
	IDEditionFlagOrdered:   ebml.TypeUint,
	IDChapterAtom:          ebml.TypeMaster,
	IDChapterUID:           ebml.TypeUint,
	IDChapterStringUID:     ebml.TypeUnicode,
	IDChapterTimeStart:     ebml.TypeUint,
	IDChapterTimeEnd:       ebml.TypeUint,
	IDChapterFlagHidden:    ebml.TypeUint,
	IDChapterFlagEnabled:   ebml.TypeUint,
	IDChapterSegmentUID:    ebml.TypeBinary,
	IDChapterPhysicalEquiv: ebml.TypeUint,
	IDChapterTrack:         ebml.TypeMaster,
	IDChapterTrackUID:      ebml.TypeUint,
	IDChapterDisplay:       ebml.TypeMaster,
	IDChapString:           ebml.TypeUnicode,
	IDChapLanguage:         ebml.TypeString,
	IDChapCountry:          ebml.TypeString,

	IDTag:              ebml.TypeMaster,
	IDTargets:          ebml.TypeMaster,
	IDTargetTypeValue:  ebml.TypeUint,
	IDTargetType:       ebml.TypeString,
	IDTagTrackUID:      ebml.TypeUint,
	IDTagEditionUID:    ebml.TypeUint,
	IDTagChapterUID:    ebml.TypeUint,
	IDTagAttachmentUID: ebml.TypeUint,
	IDSimpleTag:        ebml.TypeMaster,
	IDTagName:          ebml.TypeUnicode,
	IDTagLanguage:      ebml.TypeString,
	IDTagDefault:       ebml.TypeUint,
	IDTagString:        ebml.TypeUnicode,
	IDTagBinary:        ebml.TypeBinary,
})

// IsTopLevel reports whether id is a direct child of the Segment.
func IsTopLevel(id ebml.ID) bool {
	switch id {
	case IDSeekHead, IDInfo, IDTracks, IDCluster, IDCues,
		IDAttachments, IDChapters, IDTags:
		return true
	}
	return false
}
