package numbering

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// ErrNumberingContention is returned when the bounded retry budget for a
// sequence increment is exhausted
var ErrNumberingContention = shared.NewDomainError("NUMBERING_CONTENTION", "Document numbering contention, retries exhausted")

// Well-known document types stamped by the ledger workflows
const (
	DocumentTypeReceipt    = "StockReceipt"
	DocumentTypeIssue      = "StockIssue"
	DocumentTypeTransfer   = "StockTransfer"
	DocumentTypeAdjustment = "StockAdjustment"
)

// Config holds the prefix table and format defaults. It is injected rather
// than compiled in so deployments (and tests) can reshape the scheme.
type Config struct {
	// Prefixes maps document type to its number prefix
	Prefixes map[string]string
	// DefaultPrefix is used for unknown document types
	DefaultPrefix string
	// DefaultFormat is the template used when a numbering row has none
	DefaultFormat string
	// MaxAttempts bounds the optimistic-concurrency retry loop
	MaxAttempts int
}

// DefaultConfig returns the stock numbering scheme
func DefaultConfig() Config {
	return Config{
		Prefixes: map[string]string{
			DocumentTypeReceipt:    "PN",
			DocumentTypeIssue:      "PX",
			DocumentTypeTransfer:   "CK",
			DocumentTypeAdjustment: "DC",
		},
		DefaultPrefix: "CT",
		DefaultFormat: "{Prefix}{yyMMdd}-{No:0000}",
		MaxAttempts:   3,
	}
}

// PrefixFor returns the prefix for a document type, falling back to the
// default prefix
func (c Config) PrefixFor(documentType string) string {
	if p, ok := c.Prefixes[documentType]; ok {
		return p
	}
	return c.DefaultPrefix
}

// DocumentNumbering is one sequence row scoped by (document type, warehouse,
// year). The row is created lazily on first use and CurrentNo only ever
// increases; the Version column detects concurrent increments.
type DocumentNumbering struct {
	shared.BaseAggregateRoot
	DocumentType string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_numbering_scope,priority:1"`
	WarehouseID  *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_numbering_scope,priority:2"`
	Year         int        `gorm:"not null;uniqueIndex:idx_numbering_scope,priority:3"`
	Prefix       string     `gorm:"type:varchar(8);not null"`
	Format       string     `gorm:"type:varchar(64);not null"`
	CurrentNo    int64      `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentNumbering) TableName() string {
	return "document_numberings"
}

// NewDocumentNumbering creates an unseeded row (CurrentNo zero) for a scope
func NewDocumentNumbering(documentType string, warehouseID *uuid.UUID, year int, prefix, format string) (*DocumentNumbering, error) {
	if documentType == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type cannot be empty")
	}
	if prefix == "" {
		return nil, shared.NewDomainError("INVALID_PREFIX", "Number prefix cannot be empty")
	}
	if format == "" {
		return nil, shared.NewDomainError("INVALID_FORMAT", "Number format cannot be empty")
	}

	return &DocumentNumbering{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentType:      documentType,
		WarehouseID:       warehouseID,
		Year:              year,
		Prefix:            prefix,
		Format:            format,
		CurrentNo:         0,
	}, nil
}

// NextValue returns the sequence value the next successful increment will
// assign, without assigning it
func (n *DocumentNumbering) NextValue() int64 {
	return n.CurrentNo + 1
}

// Advance assigns the next sequence value
func (n *DocumentNumbering) Advance() int64 {
	n.CurrentNo++
	n.Touch()
	return n.CurrentNo
}

// noTokenRe matches the padded sequence token, e.g. {No:0000}
var noTokenRe = regexp.MustCompile(`\{No:(0+)\}`)

// Render formats a sequence value using the row's template. Supported
// tokens: {Prefix}, {yyyy}, {yy}, {MM}, {dd}, {yyMM}, {yyMMdd}, {WH}
// (warehouse name), {WHID} (warehouse id) and {No:0+} where the zero count
// sets the padding width.
func (n *DocumentNumbering) Render(value int64, at time.Time, warehouseName string) string {
	warehouseID := ""
	if n.WarehouseID != nil {
		warehouseID = n.WarehouseID.String()
	}

	replacer := strings.NewReplacer(
		"{Prefix}", n.Prefix,
		"{yyyy}", at.Format("2006"),
		"{yyMMdd}", at.Format("060102"),
		"{yyMM}", at.Format("0601"),
		"{yy}", at.Format("06"),
		"{MM}", at.Format("01"),
		"{dd}", at.Format("02"),
		"{WHID}", warehouseID,
		"{WH}", warehouseName,
	)
	out := replacer.Replace(n.Format)

	return noTokenRe.ReplaceAllStringFunc(out, func(token string) string {
		width := len(noTokenRe.FindStringSubmatch(token)[1])
		return fmt.Sprintf("%0*d", width, value)
	})
}
