package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/xuri/excelize/v2"
)

const ordersSheet = "Orders"

var orderExportHeader = []interface{}{
	"Order", "Date", "Status", "Customer", "Phone", "Address", "Region",
	"Items", "Units", "Payment", "Shipping", "Subtotal", "Total",
}

// WriteOrdersXLSX writes one row per order, newest first as given
func WriteOrdersXLSX(w io.Writer, orders []*domain.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(ordersSheet, "A1", &orderExportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		f.SetRowStyle(ordersSheet, 1, 1, bold)
	}

	for i, o := range orders {
		row := []interface{}{
			o.ID.String(),
			o.CreatedAt.Format("2006-01-02 15:04"),
			string(o.Status),
			o.Customer.FullName,
			o.Customer.Phone,
			o.Customer.Address,
			o.Customer.Region,
			describeItems(o.Items),
			o.ItemCount(),
			string(o.PaymentMethod),
			o.Shipping,
			o.Subtotal,
			o.Total,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write order row: %w", err)
		}
	}

	if err := f.SetColWidth(ordersSheet, "A", "A", 38); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(ordersSheet, "H", "H", 60); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// describeItems renders "2 x Robe (M, rouge); 1 x Pack duo [Sac, Ceinture]"
func describeItems(items []domain.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "%d x %s", it.Quantity, it.Name)

		var opts []string
		if it.SelectedSize != nil {
			opts = append(opts, *it.SelectedSize)
		}
		if it.SelectedColor != nil {
			opts = append(opts, *it.SelectedColor)
		}
		if len(opts) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(opts, ", "))
		}

		if it.Type == domain.LineItemPack {
			names := make([]string, 0, len(it.Products))
			for _, p := range it.Products {
				names = append(names, p.Name)
			}
			fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}
