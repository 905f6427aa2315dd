package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type NotificationType string

const (
	NotificationAlert    NotificationType = "alert"
	NotificationReminder NotificationType = "reminder"
	NotificationInfo     NotificationType = "info"
	NotificationWarning  NotificationType = "warning"
	NotificationSuccess  NotificationType = "success"
)

const (
	CategoryCompliance = "compliance"
	CategoryFinancial  = "financial"
	CategoryPayroll    = "payroll"
	CategoryReports    = "reports"
	CategoryGeneral    = "general"
)

// NotificationRequest is handed to an Emitter; storage and delivery are the emitter's job.
type NotificationRequest struct {
	CompanyId  string            `json:"company_id"`
	UserId     *int              `json:"user_id,omitempty"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Type       NotificationType  `json:"type"`
	Category   string            `json:"category"`
	Priority   AlertPriority     `json:"priority"`
	ActionUrl  string            `json:"action_url,omitempty"`
	ActionText string            `json:"action_text,omitempty"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type Emitter interface {
	Emit(ctx context.Context, req NotificationRequest) error
}

// EmitAll stops at the first failing request and returns how many were emitted.
func EmitAll(ctx context.Context, e Emitter, reqs []NotificationRequest) (int, error) {
	for i, req := range reqs {
		if err := e.Emit(ctx, req); err != nil {
			return i, err
		}
	}
	return len(reqs), nil
}

type ExpiryKind string

const (
	ExpiryLicense      ExpiryKind = "license"
	ExpiryInsurance    ExpiryKind = "insurance"
	ExpiryRegistration ExpiryKind = "registration"
)

// ExpiryNotice is one dated document of a driver or vehicle.
type ExpiryNotice struct {
	Kind      ExpiryKind
	EntityId  int
	Label     string
	ExpiresOn time.Time
}

func daysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// ComplianceNotifications returns one warning per notice expiring within
// (today, today+30]. Seven days or fewer is high priority.
func ComplianceNotifications(companyId string, today time.Time, notices []ExpiryNotice) []NotificationRequest {
	var out []NotificationRequest
	for _, n := range notices {
		days := daysBetween(today, n.ExpiresOn)
		if days <= 0 || days > ExpiryHorizonDays {
			continue
		}
		priority := PriorityMedium
		if days <= licenseHighDays {
			priority = PriorityHigh
		}
		req := NotificationRequest{
			CompanyId: companyId,
			Type:      NotificationWarning,
			Category:  CategoryCompliance,
			Priority:  priority,
			Metadata: map[string]string{
				"kind":       string(n.Kind),
				"entity_id":  fmt.Sprint(n.EntityId),
				"expires_on": dateString(n.ExpiresOn),
			},
		}
		switch n.Kind {
		case ExpiryLicense:
			req.Title = "Driver License Expiring Soon"
			req.Message = fmt.Sprintf("%s's license expires in %d days", n.Label, days)
			req.ActionUrl = fmt.Sprintf("/drivers/%d", n.EntityId)
			req.ActionText = "Update License"
		case ExpiryInsurance:
			req.Title = "Vehicle Insurance Expiring"
			req.Message = fmt.Sprintf("Insurance for %s expires in %d days", n.Label, days)
			req.ActionUrl = fmt.Sprintf("/fleet/%d", n.EntityId)
			req.ActionText = "Renew Insurance"
		case ExpiryRegistration:
			req.Title = "Vehicle Registration Expiring"
			req.Message = fmt.Sprintf("Registration for %s expires in %d days", n.Label, days)
			req.ActionUrl = fmt.Sprintf("/fleet/%d", n.EntityId)
			req.ActionText = "Renew Registration"
		default:
			continue
		}
		out = append(out, req)
	}
	return out
}

var (
	expenseAlertRatio = decimal.RequireFromString("1.1")
	revenueAlertRatio = decimal.RequireFromString("0.8")
)

// BudgetNotifications flags expenses more than 10% over target and revenue
// more than 20% under target. Zero targets never trigger.
func BudgetNotifications(b Budget, perf BudgetPerformance) []NotificationRequest {
	var out []NotificationRequest
	if b.TargetExpenses.IsPositive() && perf.Expenses.GreaterThan(b.TargetExpenses.Mul(expenseAlertRatio)) {
		pct := perf.Expenses.Sub(b.TargetExpenses).Div(b.TargetExpenses).Mul(hundred)
		out = append(out, NotificationRequest{
			CompanyId:  b.CompanyId,
			Title:      "Budget Alert: " + b.Name,
			Message:    fmt.Sprintf("Expenses are %s%% over budget for the current period", pct.StringFixed(1)),
			Type:       NotificationAlert,
			Category:   CategoryFinancial,
			Priority:   PriorityHigh,
			ActionUrl:  "/financial-planning",
			ActionText: "Review Budget",
			Metadata:   map[string]string{"budget_id": fmt.Sprint(b.ID)},
		})
	}
	if b.TargetRevenue.IsPositive() && perf.Revenue.LessThan(b.TargetRevenue.Mul(revenueAlertRatio)) {
		pct := b.TargetRevenue.Sub(perf.Revenue).Div(b.TargetRevenue).Mul(hundred)
		out = append(out, NotificationRequest{
			CompanyId:  b.CompanyId,
			Title:      "Revenue Alert: " + b.Name,
			Message:    fmt.Sprintf("Revenue is %s%% below target for the current period", pct.StringFixed(1)),
			Type:       NotificationWarning,
			Category:   CategoryFinancial,
			Priority:   PriorityMedium,
			ActionUrl:  "/financial-planning",
			ActionText: "Review Performance",
			Metadata:   map[string]string{"budget_id": fmt.Sprint(b.ID)},
		})
	}
	return out
}

// PayrollNotification tells the company that a payroll run finished.
func PayrollNotification(companyId string, period Period, processed int, total decimal.Decimal) NotificationRequest {
	return NotificationRequest{
		CompanyId:  companyId,
		Title:      "Payroll Processed",
		Message:    fmt.Sprintf("Payroll for %s processed for %d drivers. Total amount: %s", period, processed, total.StringFixed(2)),
		Type:       NotificationSuccess,
		Category:   CategoryPayroll,
		Priority:   PriorityMedium,
		ActionUrl:  "/payroll",
		ActionText: "View Payroll",
		Metadata:   map[string]string{"period": period.String()},
	}
}

// DriverPaymentNotification is addressed to the paid driver.
func DriverPaymentNotification(companyId string, driverUserId int, period Period, net decimal.Decimal) NotificationRequest {
	uid := driverUserId
	return NotificationRequest{
		CompanyId: companyId,
		UserId:    &uid,
		Title:     "Payment Scheduled",
		Message:   fmt.Sprintf("Your payment of %s for %s is pending", net.StringFixed(2), period),
		Type:      NotificationInfo,
		Category:  CategoryPayroll,
		Priority:  PriorityLow,
		Metadata:  map[string]string{"period": period.String()},
	}
}

// ReportReadyNotification announces a generated scheduled report.
func ReportReadyNotification(companyId, name string, frequency Frequency, reportType, url string) NotificationRequest {
	req := NotificationRequest{
		CompanyId:  companyId,
		Title:      "Scheduled Report: " + name,
		Message:    fmt.Sprintf("Your %s %s report has been generated", frequency, reportType),
		Type:       NotificationInfo,
		Category:   CategoryReports,
		Priority:   PriorityLow,
		ActionUrl:  "/reports/advanced",
		ActionText: "View Reports",
	}
	if url != "" {
		req.ActionUrl = url
		req.ActionText = "Download Report"
	}
	return req
}
