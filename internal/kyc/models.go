package kyc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// VerificationStatus is the review state of a KYC submission.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// KYCStatus mirrors the latest KYC lifecycle event on a user profile.
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

// ParseKYCStatus validates a user-facing status value.
func ParseKYCStatus(s string) (KYCStatus, error) {
	switch status := KYCStatus(s); status {
	case KYCStatusNone, KYCStatusPending, KYCStatusApproved, KYCStatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// JSON keys owned by the store. Submitted or profile fields using these keys
// are overwritten (KYC) or ignored (profile updates).
const (
	fieldWalletAddress      = "walletAddress"
	fieldSubmittedAt        = "submittedAt"
	fieldVerificationStatus = "verificationStatus"
	fieldKYCStatus          = "kycStatus"
	fieldKYCSubmittedAt     = "kycSubmittedAt"
)

// timestampLayout matches ISO-8601 with millisecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// KYCRecord is one identity-verification submission. Fields holds the
// submitted document references and personal data; the store never inspects them.
//
// A stored key of the wrong type (null, a number, an unparseable timestamp)
// leaves the typed field zero and stays in Fields, so rewriting the collection
// keeps it as found. An entry that is not a JSON object is carried verbatim.
type KYCRecord struct {
	WalletAddress      string
	SubmittedAt        time.Time
	VerificationStatus VerificationStatus
	Fields             map[string]any

	raw json.RawMessage
}

// UserRecord is the per-wallet profile. Fields holds every profile attribute
// besides the KYC mirror. Decoding follows the KYCRecord rules.
type UserRecord struct {
	WalletAddress  string
	KYCStatus      KYCStatus
	KYCSubmittedAt time.Time
	Fields         map[string]any

	raw json.RawMessage
}

// Stats counts KYC records by verification status.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// MarshalJSON flattens Fields alongside the store-owned keys. Unset store-owned
// values are omitted so a raw value kept in Fields is written back unchanged.
func (r KYCRecord) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	doc := make(map[string]any, len(r.Fields)+3)
	maps.Copy(doc, r.Fields)
	if r.WalletAddress != "" {
		doc[fieldWalletAddress] = r.WalletAddress
	}
	if !r.SubmittedAt.IsZero() {
		doc[fieldSubmittedAt] = formatTimestamp(r.SubmittedAt)
	}
	if r.VerificationStatus != "" {
		doc[fieldVerificationStatus] = r.VerificationStatus
	}
	return json.Marshal(doc)
}

func (r *KYCRecord) UnmarshalJSON(data []byte) error {
	doc, ok := decodeDocument(data)
	if !ok {
		*r = KYCRecord{raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*r = KYCRecord{
		WalletAddress:      takeString(doc, fieldWalletAddress),
		VerificationStatus: VerificationStatus(takeString(doc, fieldVerificationStatus)),
		SubmittedAt:        takeTimestamp(doc, fieldSubmittedAt),
		Fields:             doc,
	}
	return nil
}

// MarshalJSON mirrors KYCRecord.MarshalJSON.
func (u UserRecord) MarshalJSON() ([]byte, error) {
	if u.raw != nil {
		return u.raw, nil
	}
	doc := make(map[string]any, len(u.Fields)+3)
	maps.Copy(doc, u.Fields)
	if u.WalletAddress != "" {
		doc[fieldWalletAddress] = u.WalletAddress
	}
	if u.KYCStatus != "" {
		doc[fieldKYCStatus] = u.KYCStatus
	}
	if !u.KYCSubmittedAt.IsZero() {
		doc[fieldKYCSubmittedAt] = formatTimestamp(u.KYCSubmittedAt)
	}
	return json.Marshal(doc)
}

func (u *UserRecord) UnmarshalJSON(data []byte) error {
	doc, ok := decodeDocument(data)
	if !ok {
		*u = UserRecord{raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*u = UserRecord{
		WalletAddress:  takeString(doc, fieldWalletAddress),
		KYCStatus:      KYCStatus(takeString(doc, fieldKYCStatus)),
		KYCSubmittedAt: takeTimestamp(doc, fieldKYCSubmittedAt),
		Fields:         doc,
	}
	return nil
}

// decodeDocument decodes a JSON object, keeping numbers as json.Number so
// opaque fields survive a round trip byte-for-byte. ok is false for anything
// that is not an object, null included.
func decodeDocument(data []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

// takeString removes key from doc when it holds a string. Any other value is
// left in doc.
func takeString(doc map[string]any, key string) string {
	s, ok := doc[key].(string)
	if !ok {
		return ""
	}
	delete(doc, key)
	return s
}

// takeTimestamp removes key from doc when it holds a parseable RFC 3339 time.
func takeTimestamp(doc map[string]any, key string) time.Time {
	s, ok := doc[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	delete(doc, key)
	return t
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// withoutKeys copies fields, dropping the reserved keys.
func withoutKeys(fields map[string]any, reserved ...string) map[string]any {
	out := make(map[string]any, len(fields))
	maps.Copy(out, fields)
	for _, k := range reserved {
		delete(out, k)
	}
	return out
}
