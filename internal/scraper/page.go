package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/beekhof/shift-sync/internal/config"
)

// PageKind is the page a login step acts on.
type PageKind int

const (
	PageUnknown PageKind = iota
	PagePartnerID
	PagePassword
	PageSecurityQuestion
	PageSchedule
)

func (k PageKind) String() string {
	switch k {
	case PagePartnerID:
		return "partner-id"
	case PagePassword:
		return "password"
	case PageSecurityQuestion:
		return "security-question"
	case PageSchedule:
		return "schedule"
	default:
		return "unknown"
	}
}

// PageStatus reports every page marker found in a rendered document. More
// than one flag can be set; Kind picks the one to act on.
type PageStatus struct {
	PartnerID        bool
	Password         bool
	SecurityQuestion bool
	Schedule         bool

	// Question is the displayed security question, when SecurityQuestion is set.
	Question string
}

// Kind resolves the flags in priority order: schedule, partner id, password,
// security question.
func (s PageStatus) Kind() PageKind {
	switch {
	case s.Schedule:
		return PageSchedule
	case s.PartnerID:
		return PagePartnerID
	case s.Password:
		return PagePassword
	case s.SecurityQuestion:
		return PageSecurityQuestion
	default:
		return PageUnknown
	}
}

func (s PageStatus) String() string {
	return fmt.Sprintf("partner_id=%t password=%t security_question=%t schedule=%t question=%q",
		s.PartnerID, s.Password, s.SecurityQuestion, s.Schedule, s.Question)
}

// Classify inspects a rendered HTML document for the login and schedule
// page markers.
func Classify(html string, sel config.Selectors) (PageStatus, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageStatus{}, fmt.Errorf("failed to parse page: %w", err)
	}

	status := PageStatus{
		PartnerID: doc.Find(sel.UsernameInput).Length() > 0,
		Password:  doc.Find(sel.PasswordInput).Length() > 0,
		Schedule:  doc.Find(sel.ScheduleContainer).Length() > 0,
	}
	if q := doc.Find(sel.SecurityQuestion).First(); q.Length() > 0 {
		status.SecurityQuestion = true
		status.Question = strings.TrimSpace(q.Text())
	}

	return status, nil
}
