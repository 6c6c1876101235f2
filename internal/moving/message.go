package moving

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Customer is the contact block of a calculator submission.
type Customer struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,min=9,max=20"`
	FromCity string `json:"from_city" validate:"omitempty,max=80"`
	ToCity   string `json:"to_city" validate:"omitempty,max=80"`
	MoveDate string `json:"move_date" validate:"omitempty,datetime=2006-01-02"`
	Notes    string `json:"notes" validate:"omitempty,max=500"`
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a currency amount with grouping, e.g. "1,250 SAR".
func FormatAmount(v float64, currency string) string {
	if v == float64(int64(v)) {
		return amountPrinter.Sprintf("%d %s", int64(v), currency)
	}
	return amountPrinter.Sprintf("%.2f %s", v, currency)
}

// ComposeMessage builds the text sent to the advertiser receiving the lead.
func ComposeMessage(c Customer, q Quote) string {
	var b strings.Builder
	b.WriteString("طلب نقل عفش جديد\n")
	b.WriteString("الاسم: " + c.Name + "\n")
	b.WriteString("الجوال: " + c.Phone + "\n")
	if c.FromCity != "" || c.ToCity != "" {
		b.WriteString("من: " + c.FromCity + " إلى: " + c.ToCity + "\n")
	}
	if c.MoveDate != "" {
		b.WriteString("التاريخ: " + c.MoveDate + "\n")
	}
	b.WriteString("\nتفاصيل التسعيرة:\n")
	for _, l := range q.Lines {
		b.WriteString("- " + l.Label)
		if l.Quantity > 1 {
			b.WriteString(amountPrinter.Sprintf(" × %d", l.Quantity))
		}
		b.WriteString(": " + FormatAmount(l.Amount, q.Currency) + "\n")
	}
	b.WriteString("المسافة: " + q.DistanceLabel + "\n")
	b.WriteString(amountPrinter.Sprintf("عدد القطع التقريبي: %d\n", q.TotalItems))
	b.WriteString("الإجمالي التقديري: " + FormatAmount(q.Total, q.Currency) + "\n")
	if c.Notes != "" {
		b.WriteString("\nملاحظات: " + c.Notes + "\n")
	}
	return b.String()
}

// NormalizePhone keeps digits and rewrites local Saudi mobiles (05xxxxxxxx)
// to the international form wa.me expects.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
		if r >= '٠' && r <= '٩' {
			digits.WriteRune('0' + (r - '٠'))
		}
	}
	d := digits.String()
	switch {
	case strings.HasPrefix(d, "00"):
		d = d[2:]
	case strings.HasPrefix(d, "05") && len(d) == 10:
		d = "966" + d[1:]
	case strings.HasPrefix(d, "5") && len(d) == 9:
		d = "966" + d
	}
	return d
}

// WhatsAppLink builds the deep link that opens a chat with text prefilled.
func WhatsAppLink(phone, text string) string {
	return "https://wa.me/" + NormalizePhone(phone) + "?text=" + url.QueryEscape(text)
}
