package ebml

// EBML header and global element ids.
const (
	IDEBML               ID = 0x1A45DFA3
	IDEBMLVersion        ID = 0x4286
	IDEBMLReadVersion    ID = 0x42F7
	IDEBMLMaxIDLength    ID = 0x42F2
	IDEBMLMaxSizeLength  ID = 0x42F3
	IDDocType            ID = 0x4282
	IDDocTypeVersion     ID = 0x4287
	IDDocTypeReadVersion ID = 0x4285
	IDVoid               ID = 0xEC
	IDCRC32              ID = 0xBF
)

// Schema maps element ids to payload types.
type Schema map[ID]Type

// HeaderSchema describes the EBML header.
var HeaderSchema = Schema{
	IDEBML:               TypeMaster,
	IDEBMLVersion:        TypeUint,
	IDEBMLReadVersion:    TypeUint,
	IDEBMLMaxIDLength:    TypeUint,
	IDEBMLMaxSizeLength:  TypeUint,
	IDDocType:            TypeString,
	IDDocTypeVersion:     TypeUint,
	IDDocTypeReadVersion: TypeUint,
	IDVoid:               TypeBinary,
	IDCRC32:              TypeBinary,
}

// TypeOf returns the type of id. Unknown ids are binary.
func (s Schema) TypeOf(id ID) Type {
	if t, ok := s[id]; ok {
		return t
	}
	return TypeBinary
}

// Merge returns a new schema containing all entries.
func Merge(schemas ...Schema) Schema {
	ret := make(Schema)
	for _, s := range schemas {
		for id, t := range s {
			ret[id] = t
		}
	}
	return ret
}

// NewHeader returns an EBML header for the given document type.
func NewHeader(docType string, version, readVersion uint64) *Element {
	return NewMaster(IDEBML,
		NewUint(IDEBMLVersion, 1),
		NewUint(IDEBMLReadVersion, 1),
		NewUint(IDEBMLMaxIDLength, MaxIDLength),
		NewUint(IDEBMLMaxSizeLength, MaxSizeLength),
		NewString(IDDocType, docType),
		NewUint(IDDocTypeVersion, version),
		NewUint(IDDocTypeReadVersion, readVersion),
	)
}
