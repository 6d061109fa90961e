// Package matroska defines the Matroska element ids, the document
// schema, output profiles and the block wire format.
package matroska

import "mkvtool/pkg/ebml"

// Segment and top level elements.
const (
	IDSegment     ebml.ID = 0x18538067
	IDSeekHead    ebml.ID = 0x114D9B74
	IDInfo        ebml.ID = 0x1549A966
	IDTracks      ebml.ID = 0x1654AE6B
	IDCluster     ebml.ID = 0x1F43B675
	IDCues        ebml.ID = 0x1C53BB6B
	IDAttachments ebml.ID = 0x1941A469
	IDChapters    ebml.ID = 0x1043A770
	IDTags        ebml.ID = 0x1254C367
)

// SeekHead.
const (
	IDSeek         ebml.ID = 0x4DBB
	IDSeekID       ebml.ID = 0x53AB
	IDSeekPosition ebml.ID = 0x53AC
)

// Info.
const (
	IDSegmentUID      ebml.ID = 0x73A4
	IDSegmentFilename ebml.ID = 0x7384
	IDPrevUID         ebml.ID = 0x3CB923
	IDPrevFilename    ebml.ID = 0x3C83AB
	IDNextUID         ebml.ID = 0x3EB923
	IDNextFilename    ebml.ID = 0x3E83BB
	IDSegmentFamily   ebml.ID = 0x4444
	IDTimestampScale  ebml.ID = 0x2AD7B1
	IDDuration        ebml.ID = 0x4489
	IDDateUTC         ebml.ID = 0x4461
	IDTitle           ebml.ID = 0x7BA9
	IDMuxingApp       ebml.ID = 0x4D80
	IDWritingApp      ebml.ID = 0x5741

	IDChapterTranslate ebml.ID = 0x6924
)

// Cluster.
const (
	IDTimestamp         ebml.ID = 0xE7
	IDPosition          ebml.ID = 0xA7
	IDPrevSize          ebml.ID = 0xAB
	IDSilentTracks      ebml.ID = 0x5854
	IDSilentTrackNumber ebml.ID = 0x58D7
	IDSimpleBlock       ebml.ID = 0xA3
	IDBlockGroup        ebml.ID = 0xA0
	IDBlock             ebml.ID = 0xA1
	IDBlockDuration     ebml.ID = 0x9B
	IDReferenceBlock    ebml.ID = 0xFB
	IDDiscardPadding    ebml.ID = 0x75A2
	IDCodecState        ebml.ID = 0xA4
)

// Tracks.
const (
	IDTrackEntry        ebml.ID = 0xAE
	IDTrackNumber       ebml.ID = 0xD7
	IDTrackUID          ebml.ID = 0x73C5
	IDTrackType         ebml.ID = 0x83
	IDFlagEnabled       ebml.ID = 0xB9
	IDFlagDefault       ebml.ID = 0x88
	IDFlagForced        ebml.ID = 0x55AA
	IDFlagLacing        ebml.ID = 0x9C
	IDDefaultDuration   ebml.ID = 0x23E383
	IDName              ebml.ID = 0x536E
	IDLanguage          ebml.ID = 0x22B59C
	IDCodecID           ebml.ID = 0x86
	IDCodecPrivate      ebml.ID = 0x63A2
	IDCodecName         ebml.ID = 0x258688
	IDCodecDelay        ebml.ID = 0x56AA
	IDSeekPreRoll       ebml.ID = 0x56BB
	IDContentEncodings  ebml.ID = 0x6D80
	IDVideo             ebml.ID = 0xE0
	IDPixelWidth        ebml.ID = 0xB0
	IDPixelHeight       ebml.ID = 0xBA
	IDDisplayWidth      ebml.ID = 0x54B0
	IDDisplayHeight     ebml.ID = 0x54BA
	IDFlagInterlaced    ebml.ID = 0x9A
	IDAudio             ebml.ID = 0xE1
	IDSamplingFrequency ebml.ID = 0xB5
	IDChannels          ebml.ID = 0x9F
	IDBitDepth          ebml.ID = 0x6264

	IDOutputSamplingFrequency ebml.ID = 0x78B5
)

// Cues.
const (
	IDCuePoint            ebml.ID = 0xBB
	IDCueTime             ebml.ID = 0xB3
	IDCueTrackPositions   ebml.ID = 0xB7
	IDCueTrack            ebml.ID = 0xF7
	IDCueClusterPosition  ebml.ID = 0xF1
	IDCueRelativePosition ebml.ID = 0xF0
	IDCueDuration         ebml.ID = 0xB2
	IDCueBlockNumber      ebml.ID = 0x5378
)

// Attachments.
const (
	IDAttachedFile    ebml.ID = 0x61A7
	IDFileDescription ebml.ID = 0x467E
	IDFileName        ebml.ID = 0x466E
	IDFileMimeType    ebml.ID = 0x4660
	IDFileData        ebml.ID = 0x465C
	IDFileUID         ebml.ID = 0x46AE
)

// Chapters.
const (
	IDEditionEntry         ebml.ID = 0x45B9
	IDEditionUID           ebml.ID = 0x45BC
	IDEditionFlagHidden    ebml.ID = 0x45BD
	IDEditionFlagDefault   ebml.ID = 0x45DB
	IDEditionFlagOrdered   ebml.ID = 0x45DD
	IDChapterAtom          ebml.ID = 0xB6
	IDChapterUID           ebml.ID = 0x73C4
	IDChapterStringUID     ebml.ID = 0x5654
	IDChapterTimeStart     ebml.ID = 0x91
	IDChapterTimeEnd       ebml.ID = 0x92
	IDChapterFlagHidden    ebml.ID = 0x98
	IDChapterFlagEnabled   ebml.ID = 0x4598
	IDChapterSegmentUID    ebml.ID = 0x6E67
	IDChapterPhysicalEquiv ebml.ID = 0x63C3
	IDChapterTrack         ebml.ID = 0x8F
	IDChapterTrackUID      ebml.ID = 0x89
	IDChapterDisplay       ebml.ID = 0x80
	IDChapString           ebml.ID = 0x85
	IDChapLanguage         ebml.ID = 0x437C
	IDChapCountry          ebml.ID = 0x437E
)

// Tags.
const (
	IDTag              ebml.ID = 0x7373
	IDTargets          ebml.ID = 0x63C0
	IDTargetTypeValue  ebml.ID = 0x68CA
	IDTargetType       ebml.ID = 0x63CA
	IDTagTrackUID      ebml.ID = 0x63C5
	IDTagEditionUID    ebml.ID = 0x63C9
	IDTagChapterUID    ebml.ID = 0x63C4
	IDTagAttachmentUID ebml.ID = 0x63C6
	IDSimpleTag        ebml.ID = 0x67C8
	IDTagName          ebml.ID = 0x45A3
	IDTagLanguage      ebml.ID = 0x447A
	IDTagDefault       ebml.ID = 0x4484
	IDTagString        ebml.ID = 0x4487
	IDTagBinary        ebml.ID = 0x4485
)
