// Package kyc persists KYC submissions and per-wallet user profiles and keeps
// the two collections consistent.
//
// Each collection is one JSON document in the medium, keyed by wallet address:
//
//	blockNexus_KYC_Data -> {"<wallet>": KYCRecord}
//	blockNexus_Users    -> {"<wallet>": UserRecord}
//
// Every record operation reads and rewrites the whole document. Wallet
// addresses are used verbatim; "0xAbc" and "0xabc" are different records.
//
// Creating or deleting a KYC record also updates the paired user's kycStatus
// (pending / none). The two writes are sequential, not transactional: a reader
// can observe the KYC write before the user write lands.
package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blocknexus/internal/kyc/metrics"
	"blocknexus/internal/medium"
	"blocknexus/pkg/requestcontext"
)

// Collection keys in the medium.
const (
	KYCCollectionKey   = "blockNexus_KYC_Data"
	UsersCollectionKey = "blockNexus_Users"
)

const (
	opSaveKYC      = "save_kyc"
	opUpdateStatus = "update_user_kyc_status"
	opUpsertUser   = "upsert_user"
	opDeleteKYC    = "delete_kyc"
	opClearAll     = "clear_all"
)

// Store is the KYC/User record manager. Construct one per medium in the
// composition root and share it; its zero value is not usable.
type Store struct {
	medium  medium.Medium
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    ArtifactSink
	clock   func() time.Time
	tracer  trace.Tracer

	// writeMu serializes read-modify-write sequences. Reads do not take it.
	writeMu sync.Mutex
}

type Option func(s *Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithArtifactSink makes Export also hand the artifact to sink.
func WithArtifactSink(sink ArtifactSink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

// WithClock overrides the request-scoped time used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New constructs a Store over m.
func New(m medium.Medium, opts ...Option) *Store {
	s := &Store{
		medium: m,
		logger: slog.Default(),
		tracer: otel.Tracer("blocknexus/internal/kyc"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllKYC returns every KYC record. Any read or decode failure is logged and
// yields an empty map.
func (s *Store) AllKYC(ctx context.Context) map[string]KYCRecord {
	records, err := readCollection[KYCRecord](ctx, s.medium, KYCCollectionKey)
	if err != nil {
		s.readFailed(ctx, KYCCollectionKey, err)
		return make(map[string]KYCRecord)
	}
	return records
}

// AllUsers returns every user record, degrading to an empty map like AllKYC.
func (s *Store) AllUsers(ctx context.Context) map[string]UserRecord {
	users, err := readCollection[UserRecord](ctx, s.medium, UsersCollectionKey)
	if err != nil {
		s.readFailed(ctx, UsersCollectionKey, err)
		return make(map[string]UserRecord)
	}
	return users
}

// KYC returns the record stored under wallet.
func (s *Store) KYC(ctx context.Context, wallet string) (KYCRecord, bool) {
	record, ok := s.AllKYC(ctx)[wallet]
	return record, ok
}

// HasKYC reports whether a KYC record exists for wallet.
func (s *Store) HasKYC(ctx context.Context, wallet string) bool {
	_, ok := s.KYC(ctx, wallet)
	return ok
}

// User returns the profile stored under wallet.
func (s *Store) User(ctx context.Context, wallet string) (UserRecord, bool) {
	user, ok := s.AllUsers(ctx)[wallet]
	return user, ok
}

// SaveKYC stores a submission for wallet, replacing any previous one, then sets
// the user's kycStatus to pending. Store-owned keys in fields are overwritten.
// A medium failure returns *PersistenceError; a failed user update is logged only.
func (s *Store) SaveKYC(ctx context.Context, wallet string, fields map[string]any) (KYCRecord, error) {
	ctx, span := s.startSpan(ctx, "kyc.SaveKYC", wallet)
	defer span.End()

	if wallet == "" {
		return KYCRecord{}, ErrInvalidWallet
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	records, err := loadForWrite[KYCRecord](ctx, s, KYCCollectionKey)
	if err != nil {
		return KYCRecord{}, s.persistenceFailed(ctx, span, opSaveKYC, wallet, err)
	}

	record := KYCRecord{
		WalletAddress:      wallet,
		SubmittedAt:        s.now(ctx),
		VerificationStatus: VerificationPending,
		Fields:             withoutKeys(fields, fieldWalletAddress, fieldSubmittedAt, fieldVerificationStatus),
	}
	records[wallet] = record

	if err := writeCollection(ctx, s.medium, KYCCollectionKey, records); err != nil {
		return KYCRecord{}, s.persistenceFailed(ctx, span, opSaveKYC, wallet, err)
	}
	s.cascadeUserStatus(ctx, wallet, KYCStatusPending)

	if s.metrics != nil {
		s.metrics.IncrementSubmissions()
		s.metrics.SetKYCRecords(len(records))
	}
	s.logger.InfoContext(ctx, "kyc submission saved",
		"request_id", requestcontext.RequestID(ctx),
		"wallet_address", wallet,
	)
	return record, nil
}

// UpdateUserKYCStatus merges status and a fresh kycSubmittedAt into the user
// record for wallet, creating it if absent. Other profile fields are kept.
// The update is best-effort: callers may ignore the returned error, which only
// reports that the mirror was not written.
func (s *Store) UpdateUserKYCStatus(ctx context.Context, wallet string, status KYCStatus) error {
	ctx, span := s.startSpan(ctx, "kyc.UpdateUserKYCStatus", wallet)
	defer span.End()

	if wallet == "" {
		return ErrInvalidWallet
	}
	if _, err := ParseKYCStatus(string(status)); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.updateUserKYCStatus(ctx, wallet, status); err != nil {
		return s.persistenceFailed(ctx, span, opUpdateStatus, wallet, err)
	}
	return nil
}

// UpsertUser merges profile fields into the user record for wallet. The KYC
// mirror keys are ignored so a profile write can never desync the collections.
func (s *Store) UpsertUser(ctx context.Context, wallet string, fields map[string]any) (UserRecord, error) {
	ctx, span := s.startSpan(ctx, "kyc.UpsertUser", wallet)
	defer span.End()

	if wallet == "" {
		return UserRecord{}, ErrInvalidWallet
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	users, err := loadForWrite[UserRecord](ctx, s, UsersCollectionKey)
	if err != nil {
		return UserRecord{}, s.persistenceFailed(ctx, span, opUpsertUser, wallet, err)
	}

	user, ok := users[wallet]
	if !ok || user.raw != nil {
		user = UserRecord{WalletAddress: wallet, KYCStatus: KYCStatusNone}
	}
	user.WalletAddress = wallet
	user.Fields = mergeFields(user.Fields,
		withoutKeys(fields, fieldWalletAddress, fieldKYCStatus, fieldKYCSubmittedAt))
	users[wallet] = user

	if err := writeCollection(ctx, s.medium, UsersCollectionKey, users); err != nil {
		return UserRecord{}, s.persistenceFailed(ctx, span, opUpsertUser, wallet, err)
	}
	return user, nil
}

// DeleteKYC removes the record for wallet and resets the user's kycStatus to
// none. A missing record is not an error. Callers treat a nil error as success.
func (s *Store) DeleteKYC(ctx context.Context, wallet string) error {
	ctx, span := s.startSpan(ctx, "kyc.DeleteKYC", wallet)
	defer span.End()

	if wallet == "" {
		return ErrInvalidWallet
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	records, err := loadForWrite[KYCRecord](ctx, s, KYCCollectionKey)
	if err != nil {
		return s.persistenceFailed(ctx, span, opDeleteKYC, wallet, err)
	}
	delete(records, wallet)

	if err := writeCollection(ctx, s.medium, KYCCollectionKey, records); err != nil {
		return s.persistenceFailed(ctx, span, opDeleteKYC, wallet, err)
	}
	s.cascadeUserStatus(ctx, wallet, KYCStatusNone)

	if s.metrics != nil {
		s.metrics.IncrementDeletions()
		s.metrics.SetKYCRecords(len(records))
	}
	s.logger.InfoContext(ctx, "kyc record deleted",
		"request_id", requestcontext.RequestID(ctx),
		"wallet_address", wallet,
	)
	return nil
}

// Stats counts KYC records by verification status in one pass. Records with an
// unknown status count toward Total only.
func (s *Store) Stats(ctx context.Context) Stats {
	var stats Stats
	for _, record := range s.AllKYC(ctx) {
		stats.Total++
		switch record.VerificationStatus {
		case VerificationPending:
			stats.Pending++
		case VerificationApproved:
			stats.Approved++
		case VerificationRejected:
			stats.Rejected++
		}
	}
	return stats
}

// ClearAll removes both collections. Both removals are attempted even if the
// first fails.
func (s *Store) ClearAll(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "kyc.ClearAll", "")
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := errors.Join(
		s.medium.RemoveItem(ctx, KYCCollectionKey),
		s.medium.RemoveItem(ctx, UsersCollectionKey),
	)
	if err != nil {
		return s.persistenceFailed(ctx, span, opClearAll, "", err)
	}
	if s.metrics != nil {
		s.metrics.SetKYCRecords(0)
	}
	s.logger.WarnContext(ctx, "all kyc and user records cleared",
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// updateUserKYCStatus is the body of UpdateUserKYCStatus; writeMu must be held.
func (s *Store) updateUserKYCStatus(ctx context.Context, wallet string, status KYCStatus) error {
	users, err := loadForWrite[UserRecord](ctx, s, UsersCollectionKey)
	if err != nil {
		return err
	}
	user, ok := users[wallet]
	if !ok || user.raw != nil {
		user = UserRecord{Fields: make(map[string]any)}
	}
	user.WalletAddress = wallet
	user.KYCStatus = status
	user.KYCSubmittedAt = s.now(ctx)
	users[wallet] = user
	return writeCollection(ctx, s.medium, UsersCollectionKey, users)
}

// cascadeUserStatus keeps the user mirror in step with a KYC create/delete.
// Its failure must not fail the primary operation.
func (s *Store) cascadeUserStatus(ctx context.Context, wallet string, status KYCStatus) {
	if err := s.updateUserKYCStatus(ctx, wallet, status); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementCascadeFailures()
		}
		s.logger.ErrorContext(ctx, "failed to update user kyc status",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_address", wallet,
			"kyc_status", status,
			"error", err,
		)
	}
}

// loadForWrite reads a collection before rewriting it. A document that is not a
// JSON object is replaced (logged); a medium error aborts the write. Odd
// individual records decode leniently and are written back as found.
func loadForWrite[T any](ctx context.Context, s *Store, key string) (map[string]T, error) {
	records, err := readCollection[T](ctx, s.medium, key)
	if err == nil {
		return records, nil
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		s.readFailed(ctx, key, err)
		return make(map[string]T), nil
	}
	return nil, err
}

func (s *Store) now(ctx context.Context) time.Time {
	now := requestcontext.Now(ctx)
	if s.clock != nil {
		now = s.clock()
	}
	return now.UTC().Truncate(time.Millisecond)
}

func (s *Store) startSpan(ctx context.Context, name, wallet string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	if wallet != "" {
		span.SetAttributes(attribute.String("wallet_address", wallet))
	}
	return ctx, span
}

func (s *Store) readFailed(ctx context.Context, key string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementReadFailures(key)
	}
	s.logger.WarnContext(ctx, "collection unreadable, using empty collection",
		"request_id", requestcontext.RequestID(ctx),
		"collection", key,
		"error", err,
	)
}

func (s *Store) persistenceFailed(ctx context.Context, span trace.Span, op, wallet string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	if s.metrics != nil {
		s.metrics.IncrementPersistenceFailures(op)
	}
	s.logger.ErrorContext(ctx, "kyc store write failed",
		"request_id", requestcontext.RequestID(ctx),
		"op", op,
		"wallet_address", wallet,
		"error", err,
	)
	return &PersistenceError{Op: op, Key: wallet, Err: err}
}

// decodeError marks a stored document that exists but is not a valid collection.
type decodeError struct {
	key string
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.key, e.err)
}

func (e *decodeError) Unwrap() error {
	return e.err
}

func readCollection[T any](ctx context.Context, m medium.Medium, key string) (map[string]T, error) {
	raw, ok, err := m.GetItem(ctx, key)
	if err != nil {
		return nil, err
	}
	records := make(map[string]T)
	if !ok || raw == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, &decodeError{key: key, err: err}
	}
	if records == nil {
		records = make(map[string]T)
	}
	return records, nil
}

func writeCollection[T any](ctx context.Context, m medium.Medium, key string, records map[string]T) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return m.SetItem(ctx, key, string(data))
}

func mergeFields(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
