package receipt

import (
	"bytes"
	"fmt"

	receiptModel "rental-ledger/models/receipt"

	"github.com/jung-kurt/gofpdf/v2"
)

// RenderPDF lays out a single-page A4 receipt
func RenderPDF(r receiptModel.Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Rental Payment Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Receipt: %s", r.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Issued: %s", r.Date.Format("02-Jan-2006 15:04 MST")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Parties
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Parties", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, tr(fmt.Sprintf("Tenant: %s", nameOrID(r.Tenant, r.TenantID))), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr(fmt.Sprintf("Landlord: %s", nameOrID(r.Landlord, r.LandlordID))), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, tr(fmt.Sprintf("Property: %s", nameOrID(r.Property, r.PropertyID))), "LRB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Payment
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Payment", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Type: %s", r.Type), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Amount: %s %s", r.Amount.String(), r.Currency), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Status: %s", r.Status), "1", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Chain details
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Transaction", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(190, 6, fmt.Sprintf("Transaction ID: %s", r.TransactionID), "LR", 1, "L", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Tx hash: %s", orDash(r.TxHash)), "LR", 1, "L", false, 0, "")
	block := "-"
	if r.BlockNumber != nil {
		block = fmt.Sprintf("%d", *r.BlockNumber)
	}
	pdf.CellFormat(95, 6, fmt.Sprintf("Block: %s", block), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Gas: %s", r.Gas.String()), "RB", 1, "L", false, 0, "")
	if r.SmartContractAddress != "" {
		pdf.CellFormat(190, 6, fmt.Sprintf("Contract: %s", r.SmartContractAddress), "LRB", 1, "L", false, 0, "")
	}

	if r.Content != "" {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, "Details", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 5, tr(r.Content), "1", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nameOrID(name, id string) string {
	if name == "" {
		return orDash(id)
	}
	if id == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, id)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
