package shared

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}

	return json.Unmarshal(bytes, s)
}

func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

type ItemKind string

const (
	ItemKindPhoto       ItemKind = "photo"
	ItemKindVideo       ItemKind = "video"
	ItemKindDocument    ItemKind = "document"
	ItemKindCertificate ItemKind = "certificate"
)

func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindPhoto, ItemKindVideo, ItemKindDocument, ItemKindCertificate:
		return true
	}
	return false
}

func (k ItemKind) String() string {
	return string(k)
}

type DocumentType string

const (
	DocumentCertificate  DocumentType = "certificate"
	DocumentGrading      DocumentType = "grading"
	DocumentAppraisal    DocumentType = "appraisal"
	DocumentReceipt      DocumentType = "receipt"
	DocumentAuthenticity DocumentType = "authenticity"
	DocumentOther        DocumentType = "other"
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentCertificate, DocumentGrading, DocumentAppraisal,
		DocumentReceipt, DocumentAuthenticity, DocumentOther:
		return true
	}
	return false
}

type SessionMode string

const (
	ModeImage   SessionMode = "image"
	ModeBarcode SessionMode = "barcode"
	ModeVideo   SessionMode = "video"
)

func (m SessionMode) Valid() bool {
	switch m {
	case ModeImage, ModeBarcode, ModeVideo:
		return true
	}
	return false
}

// NeedsAudio reports whether a stream in this mode carries an audio track.
func (m SessionMode) NeedsAudio() bool {
	return m == ModeVideo
}

type StoreType string

const (
	StoreThrift  StoreType = "thrift"
	StoreAntique StoreType = "antique"
	StoreEstate  StoreType = "estate"
	StoreGarage  StoreType = "garage"
	StoreFlea    StoreType = "flea"
	StorePawn    StoreType = "pawn"
	StoreAuction StoreType = "auction"
	StoreRetail  StoreType = "retail"
	StoreOther   StoreType = "other"
)

func (s StoreType) Valid() bool {
	switch s {
	case StoreThrift, StoreAntique, StoreEstate, StoreGarage, StoreFlea,
		StorePawn, StoreAuction, StoreRetail, StoreOther:
		return true
	}
	return false
}
