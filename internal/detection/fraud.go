// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package detection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/scoring"
)

// Alert codes emitted by the fraud heuristics.
const (
	AlertPressureLanguage    = "PRESSURE_LANGUAGE"
	AlertBrandDomainMismatch = "BRAND_DOMAIN_MISMATCH"
	AlertBankDetailChange    = "BANK_DETAIL_CHANGE"
	AlertBankMismatch        = "BANK_MISMATCH"
	AlertBillingVelocity     = "BILLING_VELOCITY"
	AlertFirstInvoice        = "FIRST_INVOICE"
	AlertHighValueNewVendor  = "HIGH_VALUE_NEW_VENDOR"
	AlertPublicEntityNotice  = "PUBLIC_ENTITY_NOTICE"
)

// FraudConfig configures the heuristic rule set.
type FraudConfig struct {
	// SuspiciousThreshold is the score above which a verdict is suspicious.
	SuspiciousThreshold int

	// PressurePhrases are matched case-insensitively against the document
	// text; only the first match fires.
	PressurePhrases []string

	// BrandDomains maps a brand name fragment to its canonical email
	// domain. A vendor name containing the brand whose contact email does
	// not carry the domain fires the mismatch rule.
	BrandDomains map[string]string

	// BankingTerms and ChangeTerms together fire the bank-detail-change
	// rule when one of each appears in the text.
	BankingTerms []string
	ChangeTerms  []string

	// VelocityMultiplier flags known-vendor amounts exceeding this
	// multiple of the historical average.
	VelocityMultiplier float64

	// DefaultHistoricalAverage substitutes for vendors with no bills.
	DefaultHistoricalAverage float64

	// HighAmountThreshold flags cold-start invoices above this amount.
	HighAmountThreshold float64

	// PublicEntityKeywords trigger the informational public-entity alert
	// on cold start; they never affect the score.
	PublicEntityKeywords []string
}

// DefaultFraudConfig returns the default rule parameters.
func DefaultFraudConfig() FraudConfig {
	return FraudConfig{
		SuspiciousThreshold: 70,
		PressurePhrases: []string{
			"urgent",
			"immediate payment",
			"final notice",
			"act now",
			"wire today",
			"account suspended",
		},
		BrandDomains: map[string]string{
			"paypal":    "paypal.com",
			"microsoft": "microsoft.com",
			"google":    "google.com",
			"apple":     "apple.com",
			"amazon":    "amazon.com",
			"netflix":   "netflix.com",
		},
		BankingTerms: []string{
			"bank account",
			"account number",
			"iban",
			"routing number",
			"payment details",
		},
		ChangeTerms: []string{
			"new",
			"changed",
			"updated",
			"change of",
		},
		VelocityMultiplier:       3.0,
		DefaultHistoricalAverage: 1000.0,
		HighAmountThreshold:      5000.0,
		PublicEntityKeywords: []string{
			"city of",
			"county",
			"municipal",
			"tax authority",
			"department of",
		},
	}
}

// ledgerResult carries a breaker-wrapped lookup outcome.
type ledgerResult struct {
	record  *VendorRecord
	average float64
}

// FraudEngine scores financial-document extractions with an ordered
// heuristic rule set. Ledger access is wrapped in a circuit breaker;
// an open breaker or a lookup error falls back to the cold-start branch.
type FraudEngine struct {
	cfg     FraudConfig
	ledger  VendorLedger
	breaker *gobreaker.CircuitBreaker[ledgerResult]
}

// NewFraudEngine creates a fraud engine over the given ledger.
func NewFraudEngine(cfg FraudConfig, ledger VendorLedger) *FraudEngine {
	def := DefaultFraudConfig()
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = def.SuspiciousThreshold
	}
	if len(cfg.PressurePhrases) == 0 {
		cfg.PressurePhrases = def.PressurePhrases
	}
	if len(cfg.BrandDomains) == 0 {
		cfg.BrandDomains = def.BrandDomains
	}
	if len(cfg.BankingTerms) == 0 {
		cfg.BankingTerms = def.BankingTerms
	}
	if len(cfg.ChangeTerms) == 0 {
		cfg.ChangeTerms = def.ChangeTerms
	}
	if cfg.VelocityMultiplier <= 0 {
		cfg.VelocityMultiplier = def.VelocityMultiplier
	}
	if cfg.DefaultHistoricalAverage <= 0 {
		cfg.DefaultHistoricalAverage = def.DefaultHistoricalAverage
	}
	if cfg.HighAmountThreshold <= 0 {
		cfg.HighAmountThreshold = def.HighAmountThreshold
	}
	if len(cfg.PublicEntityKeywords) == 0 {
		cfg.PublicEntityKeywords = def.PublicEntityKeywords
	}

	return &FraudEngine{
		cfg:    cfg,
		ledger: ledger,
		breaker: gobreaker.NewCircuitBreaker[ledgerResult](gobreaker.Settings{
			Name: "vendor-ledger",
		}),
	}
}

// Score runs the rule set in fixed order and returns the verdict.
// Rules fire at most once each; alerts preserve firing order. The final
// score is clamped to 0-100 and the verdict is suspicious when the
// clamped score strictly exceeds the configured threshold.
func (f *FraudEngine) Score(ctx context.Context, extraction Extraction) RiskVerdict {
	score := 10.0
	var alerts []Alert

	text := strings.ToLower(extraction.Text)
	vendor := strings.ToLower(extraction.VendorName)
	email := strings.ToLower(extraction.ContactEmail)

	for _, phrase := range f.cfg.PressurePhrases {
		if strings.Contains(text, strings.ToLower(phrase)) {
			score += 30
			alerts = append(alerts, Alert{
				Code:     AlertPressureLanguage,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("pressure language detected: %q", phrase),
			})
			break
		}
	}

	// Brands are checked in sorted order so a vendor name matching two
	// brands fires deterministically.
	for _, brand := range sortedKeys(f.cfg.BrandDomains) {
		domain := f.cfg.BrandDomains[brand]
		if strings.Contains(vendor, brand) && !strings.Contains(email, domain) {
			score += 40
			alerts = append(alerts, Alert{
				Code:     AlertBrandDomainMismatch,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("vendor claims brand %q but contact email %q is not on %s",
					brand, extraction.ContactEmail, domain),
			})
			break
		}
	}

	if containsAny(text, f.cfg.BankingTerms) && containsAny(text, f.cfg.ChangeTerms) {
		score += 50
		alerts = append(alerts, Alert{
			Code:     AlertBankDetailChange,
			Severity: SeverityCritical,
			Message:  "document announces changed banking details",
		})
	}

	record, average, known := f.lookupVendor(ctx, extraction.VendorName)
	if known {
		score = f.applyKnownVendorRules(extraction, record, average, score, &alerts)
	} else {
		score = f.applyColdStartRules(extraction, score, &alerts)
	}

	final := scoring.ClampScore(score)
	return RiskVerdict{
		Score:      final,
		Suspicious: final > f.cfg.SuspiciousThreshold,
		Alerts:     alerts,
	}
}

// lookupVendor resolves the vendor and its historical average through
// the circuit breaker. Any failure reports the vendor as unknown so the
// caller degrades to the cold-start branch.
func (f *FraudEngine) lookupVendor(ctx context.Context, name string) (*VendorRecord, float64, bool) {
	if name == "" {
		return nil, 0, false
	}

	result, err := f.breaker.Execute(func() (ledgerResult, error) {
		record, err := f.ledger.FindByName(ctx, name)
		if err != nil {
			return ledgerResult{}, fmt.Errorf("find vendor: %w", err)
		}
		if record == nil {
			return ledgerResult{}, nil
		}

		average, err := f.ledger.HistoricalAverage(ctx, record.ID)
		if err != nil {
			return ledgerResult{}, fmt.Errorf("historical average: %w", err)
		}
		return ledgerResult{record: record, average: average}, nil
	})
	if err != nil {
		logging.Warn().Err(err).Str("vendor", name).
			Msg("ledger lookup failed, falling back to cold-start scoring")
		return nil, 0, false
	}
	if result.record == nil {
		return nil, 0, false
	}

	average := result.average
	if average <= 0 {
		average = f.cfg.DefaultHistoricalAverage
	}
	return result.record, average, true
}

// applyKnownVendorRules applies the override floors for vendors present
// in the ledger. Floors use max(score, floor) at the moment they fire.
func (f *FraudEngine) applyKnownVendorRules(
	extraction Extraction,
	record *VendorRecord,
	average float64,
	score float64,
	alerts *[]Alert,
) float64 {
	if extraction.BankFingerprint != "" && record.BankFingerprint != "" &&
		extraction.BankFingerprint != record.BankFingerprint {
		if score < 95 {
			score = 95
		}
		*alerts = append(*alerts, Alert{
			Code:     AlertBankMismatch,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("bank details do not match the ledger record for %q",
				record.Name),
		})
	}

	if limit := average * f.cfg.VelocityMultiplier; extraction.Amount > limit {
		if score < 85 {
			score = 85
		}
		multiple := extraction.Amount / average
		*alerts = append(*alerts, Alert{
			Code:     AlertBillingVelocity,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("amount %.2f is %.1fx the historical average %.2f for %q",
				extraction.Amount, multiple, average, record.Name),
		})
	}

	return score
}

// applyColdStartRules scores a vendor with no ledger record.
func (f *FraudEngine) applyColdStartRules(
	extraction Extraction,
	score float64,
	alerts *[]Alert,
) float64 {
	score += 20
	*alerts = append(*alerts, Alert{
		Code:     AlertFirstInvoice,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("first invoice from unknown vendor %q", extraction.VendorName),
	})

	if extraction.Amount > f.cfg.HighAmountThreshold {
		score += 15
		*alerts = append(*alerts, Alert{
			Code:     AlertHighValueNewVendor,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("high-value first invoice (%.2f), route for manual approval",
				extraction.Amount),
		})
	}

	vendor := strings.ToLower(extraction.VendorName)
	for _, keyword := range f.cfg.PublicEntityKeywords {
		if strings.Contains(vendor, keyword) {
			*alerts = append(*alerts, Alert{
				Code:     AlertPublicEntityNotice,
				Severity: SeverityInfo,
				Message: fmt.Sprintf("vendor name resembles a public entity (%q); verify through official channels",
					keyword),
			})
			break
		}
	}

	return score
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
