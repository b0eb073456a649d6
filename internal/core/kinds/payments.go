package kinds

import "github.com/JonMunkholm/roster/internal/core"

// Payments are filtered on payment_date when exported with a date range.
func Payments() core.Schema {
	return core.Schema{
		Kind:       core.KindPayments,
		Label:      "Payments",
		NaturalKey: "id",
		DateField:  "payment_date",
		Fields: []core.FieldSpec{
			idField(),
			{
				Name:     "member_id",
				Label:    "Member ID",
				Aliases:  []string{"idMembre", "membre", "member"},
				Type:     core.FieldText,
				Required: true,
				Example:  "6f1c2a4e-8d3b-4c55-9a0e-2b7d9f3e1a10",
			},
			{
				Name:     "amount",
				Label:    "Amount",
				Aliases:  []string{"montant", "total", "price"},
				Type:     core.FieldNumber,
				Required: true,
				Example:  "49.99",
			},
			{
				Name:     "payment_date",
				Label:    "Payment Date",
				Aliases:  []string{"datePaiement", "date de paiement", "paid on", "date"},
				Type:     core.FieldDate,
				Required: true,
				Example:  "2024-01-15",
			},
			{
				Name:     "status",
				Label:    "Status",
				Aliases:  []string{"statut", "etat"},
				Type:     core.FieldText,
				Required: true,
				Example:  "paid",
				Values:   []string{"paid", "pending", "overdue", "refunded"},
			},
			{
				Name:    "due_date",
				Label:   "Due Date",
				Aliases: []string{"dateEcheance", "echeance", "due"},
				Type:    core.FieldDate,
				Example: "2024-01-31",
			},
			{
				Name:    "payment_method",
				Label:   "Payment Method",
				Aliases: []string{"methodePaiement", "mode de paiement", "method"},
				Type:    core.FieldText,
				Default: core.DefaultTo("cash"),
				Example: "card",
				Values:  []string{"cash", "card", "transfer", "check"},
			},
			notesField(),
		},
	}
}
