package scraper

import (
	"testing"

	"github.com/beekhof/shift-sync/internal/config"
)

const (
	partnerPageHTML = `<html><body><form>
<input type="text" class="textbox txtUserid" name="UserID">
<input type="submit" class="aspNetDisabled" disabled value="Next">
<input type="submit" value="Next">
</form></body></html>`

	passwordPageHTML = `<html><body><form>
<input type="password" class="textbox tbxPassword" name="Password">
<input type="submit" value="Sign In">
</form></body></html>`

	securityPageHTML = `<html><body><form>
<span class="bodytext lblKBQ lblKBQ1">
  What was the name of your first pet?
</span>
<input type="password" class="textbox tbxKBA" name="KBA">
<input type="submit" value="Submit">
</form></body></html>`

	schedulePageHTML = `<html><body>
<iframe class="x-component" src="/schedule/frame"></iframe>
</body></html>`
)

func TestClassify_PartnerIDOnly(t *testing.T) {
	status, err := Classify(partnerPageHTML, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("Classify() returned an error: %v", err)
	}

	if !status.PartnerID {
		t.Error("Expected PartnerID to be detected")
	}
	if status.Password || status.SecurityQuestion || status.Schedule {
		t.Errorf("Expected no other page flags, got %s", status)
	}
	if status.Kind() != PagePartnerID {
		t.Errorf("Expected kind partner-id, got %s", status.Kind())
	}
}

func TestClassify_ScheduleOnly(t *testing.T) {
	status, err := Classify(schedulePageHTML, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("Classify() returned an error: %v", err)
	}

	if !status.Schedule {
		t.Error("Expected Schedule to be detected")
	}
	if status.PartnerID || status.Password || status.SecurityQuestion {
		t.Errorf("Expected no other page flags, got %s", status)
	}
	if status.Kind() != PageSchedule {
		t.Errorf("Expected kind schedule, got %s", status.Kind())
	}
}

func TestClassify_SecurityQuestionCapturesText(t *testing.T) {
	status, err := Classify(securityPageHTML, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("Classify() returned an error: %v", err)
	}

	if !status.SecurityQuestion {
		t.Fatal("Expected SecurityQuestion to be detected")
	}
	if status.Question != "What was the name of your first pet?" {
		t.Errorf("Expected trimmed question text, got %q", status.Question)
	}
	if status.Kind() != PageSecurityQuestion {
		t.Errorf("Expected kind security-question, got %s", status.Kind())
	}
}

func TestClassify_MultipleMarkers(t *testing.T) {
	html := `<html><body>
<input class="textbox txtUserid"><input class="textbox tbxPassword">
</body></html>`

	status, err := Classify(html, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("Classify() returned an error: %v", err)
	}

	if !status.PartnerID || !status.Password {
		t.Errorf("Expected both partner id and password flags, got %s", status)
	}
	if status.Kind() != PagePartnerID {
		t.Errorf("Expected partner id to take priority over password, got %s", status.Kind())
	}
}

func TestClassify_Unknown(t *testing.T) {
	status, err := Classify(`<html><body><h1>Service Unavailable</h1></body></html>`, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("Classify() returned an error: %v", err)
	}
	if status.Kind() != PageUnknown {
		t.Errorf("Expected unknown page, got %s", status)
	}
}

func TestClassify_CustomSelectors(t *testing.T) {
	sel := config.DefaultSelectors()
	sel.ScheduleContainer = "#shift-grid"

	status, err := Classify(`<div id="shift-grid"></div>`, sel)
	if err != nil {
		t.Fatalf("Classify() returned an error: %v", err)
	}
	if !status.Schedule {
		t.Error("Expected custom schedule selector to match")
	}
}
