/*
dto.go - request/response data structures for the HTTP API

PURPOSE:
  Keeps wire shapes separate from domain types. Money is rendered as fixed
  two-decimal strings so the browser never touches floating point.

SEE ALSO:
  - handlers.go: where these are populated
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-engine/aggregate"
	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/domain"
	"github.com/crewtrack/billing-engine/export"
)

// =============================================================================
// REPORT
// =============================================================================

type TotalsDTO struct {
	Hours           string `json:"hours"`
	EffectiveHours  string `json:"effectiveHours"`
	LaborCost       string `json:"laborCost"`
	BillableAmount  string `json:"billableAmount"`
	LOAAmount       string `json:"loaAmount"`
	GST             string `json:"gst"`
	Revenue         string `json:"revenue"`
	Profit          string `json:"profit"`
	NonBillableCost string `json:"nonBillableCost"`
	EntryCount      int    `json:"entryCount"`
}

type RentalTotalsDTO struct {
	Revenue string `json:"revenue"`
	DSPCost string `json:"dspCost"`
	GST     string `json:"gst"`
	Profit  string `json:"profit"`
	Count   int    `json:"count"`
}

type GroupDTO struct {
	Key            string   `json:"key"`
	Parts          []string `json:"parts"`
	Hours          string   `json:"hours"`
	EffectiveHours string   `json:"effectiveHours"`
	LaborCost      string   `json:"laborCost"`
	BillableAmount string   `json:"billableAmount"`
	LOAAmount      string   `json:"loaAmount"`
	GST            string   `json:"gst"`
	Profit         string   `json:"profit"`
	EntryCount     int      `json:"entryCount"`
}

type DiscrepancyDTO struct {
	Dimension string `json:"dimension"`
	Field     string `json:"field"`
	GroupSum  string `json:"groupSum"`
	FlatTotal string `json:"flatTotal"`
	Delta     string `json:"delta"`
}

type SkippedDTO struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type ReportDTO struct {
	Title       string    `json:"title"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	Totals       TotalsDTO       `json:"totals"`
	RentalTotals RentalTotalsDTO `json:"rentalTotals"`

	ByEmployee       []GroupDTO `json:"byEmployee"`
	CategoryProvince []GroupDTO `json:"categoryProvince"`
	Monthly          []GroupDTO `json:"monthly"`
	InvoiceStatus    []GroupDTO `json:"invoiceStatus"`

	Skipped []SkippedDTO `json:"skipped,omitempty"`

	ReconciliationOK bool             `json:"reconciliationOk"`
	Discrepancies    []DiscrepancyDTO `json:"discrepancies,omitempty"`
}

func toReportDTO(r *export.Report) ReportDTO {
	dto := ReportDTO{
		Title:       r.Title,
		From:        string(r.From),
		To:          string(r.To),
		GeneratedAt: r.GeneratedAt,
		Totals: TotalsDTO{
			Hours:           r.Totals.Hours.String(),
			EffectiveHours:  r.Totals.EffectiveHours.String(),
			LaborCost:       fixed(r.Totals.LaborCost),
			BillableAmount:  fixed(r.Totals.BillableAmount),
			LOAAmount:       fixed(r.Totals.LOAAmount),
			GST:             fixed(r.Totals.GST),
			Revenue:         fixed(r.Totals.Revenue()),
			Profit:          fixed(r.Totals.Profit),
			NonBillableCost: fixed(r.Totals.NonBillableCost),
			EntryCount:      r.Totals.EntryCount,
		},
		RentalTotals: RentalTotalsDTO{
			Revenue: fixed(r.RentalTotals.Revenue),
			DSPCost: fixed(r.RentalTotals.DSPCost),
			GST:     fixed(r.RentalTotals.GST),
			Profit:  fixed(r.RentalTotals.Profit),
			Count:   r.RentalTotals.Count,
		},
		ByEmployee:       toGroupDTOs(r.ByEmployee),
		CategoryProvince: toGroupDTOs(r.CategoryProvince),
		Monthly:          toGroupDTOs(r.Monthly),
		InvoiceStatus:    toGroupDTOs(r.InvoiceStatus),
		ReconciliationOK: r.Reconciliation.OK,
	}
	for _, s := range r.Skipped {
		dto.Skipped = append(dto.Skipped, SkippedDTO{ID: s.ID, Reason: s.Reason})
	}
	for _, d := range r.Reconciliation.Mismatches {
		dto.Discrepancies = append(dto.Discrepancies, DiscrepancyDTO{
			Dimension: string(d.Dimension),
			Field:     d.Field,
			GroupSum:  d.GroupSum.String(),
			FlatTotal: d.FlatTotal.String(),
			Delta:     d.Delta.String(),
		})
	}
	return dto
}

func toGroupDTOs(groups []aggregate.Group) []GroupDTO {
	dtos := make([]GroupDTO, len(groups))
	for i := range groups {
		g := &groups[i]
		dtos[i] = GroupDTO{
			Key:            g.Key,
			Parts:          g.Parts,
			Hours:          g.Hours.String(),
			EffectiveHours: g.EffectiveHours.String(),
			LaborCost:      fixed(g.LaborCost),
			BillableAmount: fixed(g.BillableAmount),
			LOAAmount:      fixed(g.LOAAmount),
			GST:            fixed(g.GST),
			Profit:         fixed(g.Profit),
			EntryCount:     g.EntryCount,
		}
	}
	return dtos
}

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }

// =============================================================================
// BACKUPS
// =============================================================================

type BackupMetaDTO struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	DataSize     int64               `json:"dataSize"`
	RecordCounts domain.RecordCounts `json:"recordCounts"`
}

func toBackupMetaDTO(m backup.Meta) BackupMetaDTO {
	return BackupMetaDTO{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Timestamp:    m.Timestamp,
		DataSize:     m.DataSize,
		RecordCounts: m.RecordCounts,
	}
}

type CreateBackupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// RESTORE PROTOCOL
// =============================================================================

type RestoreSessionDTO struct {
	SessionID string `json:"sessionId"`
	BackupID  string `json:"backupId"`
	State     string `json:"state"`
}

type AckRequest struct {
	Step int `json:"step"`
}

type ConfirmRequest struct {
	Token string `json:"token"`
}

// =============================================================================
// MISC
// =============================================================================

type ResetRequest struct {
	Password string `json:"password"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
