package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// Reject reasons. Per-fill rejects never abort a batch.
var (
	ErrMalformedFill      = errors.New("malformed fill")
	ErrAmbiguousDirection = errors.New("ambiguous direction")
)

// RejectError wraps a reject reason with the offending field.
type RejectError struct {
	Reason error
	Field  string
	Detail string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Reason, e.Field, e.Detail)
}

func (e *RejectError) Unwrap() error {
	return e.Reason
}

// Config holds normalizer configuration.
type Config struct {
	// InferDirection marks fills with a missing dir tag for downstream
	// inference from the fill side and the key's position sign. The
	// position tracker resolves the direction at apply time, when the
	// sign is exact.
	InferDirection bool

	// PassAmbiguousThrough accepts fills whose direction cannot be
	// inferred instead of rejecting them. Passed-through fills carry
	// DirUnknown and are logged.
	PassAmbiguousThrough bool

	Logger *zap.Logger
}

// Normalizer validates raw fill records and canonicalizes them into the
// internal Fill type. It is a pure transform; position sign lookups are
// read-only.
type Normalizer struct {
	cfg    Config
	logger *zap.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Normalize converts one raw record into a canonical Fill, or returns a
// RejectError wrapping ErrMalformedFill or ErrAmbiguousDirection.
func (n *Normalizer) Normalize(raw *types.RawFill) (*types.Fill, error) {
	if raw.User == "" {
		return nil, n.reject(ErrMalformedFill, "user", "missing account id")
	}
	if raw.Coin == "" {
		return nil, n.reject(ErrMalformedFill, "coin", "missing instrument")
	}
	if raw.Time <= 0 {
		return nil, n.reject(ErrMalformedFill, "time", fmt.Sprintf("invalid timestamp %d", raw.Time))
	}

	price, err := decimal.NewFromString(raw.Px)
	if err != nil {
		return nil, n.reject(ErrMalformedFill, "px", err.Error())
	}
	if !price.IsPositive() {
		return nil, n.reject(ErrMalformedFill, "px", "price must be positive, got "+raw.Px)
	}

	size, err := decimal.NewFromString(raw.Sz)
	if err != nil {
		return nil, n.reject(ErrMalformedFill, "sz", err.Error())
	}
	if !size.IsPositive() {
		return nil, n.reject(ErrMalformedFill, "sz", "size must be positive, got "+raw.Sz)
	}

	var side types.Side
	switch raw.Side {
	case string(types.SideBuy):
		side = types.SideBuy
	case string(types.SideSell):
		side = types.SideSell
	default:
		return nil, n.reject(ErrMalformedFill, "side", "expected B or A, got "+raw.Side)
	}

	fill := &types.Fill{
		AccountID:  raw.User,
		Instrument: raw.Coin,
		Price:      price,
		Size:       size,
		Side:       side,
		Timestamp:  time.UnixMilli(raw.Time).UTC(),
		SequenceID: sequenceID(raw),
		Role:       types.RoleMaker,
	}

	if raw.Crossed {
		fill.Role = types.RoleTaker
	}

	if raw.Fee != "" {
		fee, err := decimal.NewFromString(raw.Fee)
		if err != nil {
			return nil, n.reject(ErrMalformedFill, "fee", err.Error())
		}
		fill.Fee = fee
	}

	if raw.ClosedPnl != nil && *raw.ClosedPnl != "" {
		pnl, err := decimal.NewFromString(*raw.ClosedPnl)
		if err != nil {
			return nil, n.reject(ErrMalformedFill, "closedPnl", err.Error())
		}
		fill.RealizedPnl = pnl
		fill.HasRealizedPnl = true
	}

	fill.IsLiquidation = raw.Liquidation != nil
	fill.IsTWAP = raw.TwapID != nil
	fill.Venue = raw.Builder

	dir, err := n.resolveDirection(raw, fill)
	if err != nil {
		return nil, err
	}
	fill.Direction = dir

	FillsNormalizedTotal.Inc()

	return fill, nil
}

func (n *Normalizer) resolveDirection(raw *types.RawFill, fill *types.Fill) (types.Direction, error) {
	switch types.Direction(raw.Dir) {
	case types.DirOpenLong, types.DirOpenShort, types.DirCloseLong, types.DirCloseShort:
		return types.Direction(raw.Dir), nil
	case types.DirUnknown:
		// fall through to inference
	default:
		return types.DirUnknown, n.reject(ErrMalformedFill, "dir", "unknown direction "+raw.Dir)
	}

	if n.cfg.InferDirection {
		fill.DirectionInferred = true
		return types.DirUnknown, nil
	}

	if n.cfg.PassAmbiguousThrough {
		n.logger.Warn("ambiguous-direction-passed-through",
			zap.String("account", fill.AccountID),
			zap.String("instrument", fill.Instrument),
			zap.Time("timestamp", fill.Timestamp))
		return types.DirUnknown, nil
	}

	return types.DirUnknown, n.reject(ErrAmbiguousDirection, "dir", "missing and inference disabled")
}

// sequenceID picks the tie-break key: trade id when present, order id as
// fallback. Identifiers carry no business meaning beyond ordering.
func sequenceID(raw *types.RawFill) int64 {
	if raw.Tid != 0 {
		return raw.Tid
	}
	return raw.Oid
}

func (n *Normalizer) reject(reason error, field, detail string) error {
	FillsRejectedTotal.WithLabelValues(rejectLabel(reason)).Inc()
	n.logger.Debug("fill-rejected",
		zap.String("reason", reason.Error()),
		zap.String("field", field),
		zap.String("detail", detail))
	return &RejectError{Reason: reason, Field: field, Detail: detail}
}

func rejectLabel(reason error) string {
	if errors.Is(reason, ErrAmbiguousDirection) {
		return "ambiguous_direction"
	}
	return "malformed"
}
