package reward

import (
	"testing"

	"github.com/kidbank/backend/internal/models"
)

func TestEvaluateAutoQuizPartialFormula(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name    string
		correct int
		total   int
		want    int64
		pay     bool
	}{
		{"zero correct", 0, 20, 0, false},
		{"below first block", 9, 20, 0, false},
		{"first block", 10, 20, 100, true},
		{"mid second block", 19, 20, 100, true},
		{"full set hits cap", 20, 20, 200, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := p.Evaluate(models.UnitQuizSet, true, tc.correct, tc.total, 999)
			if out.AmountCents != tc.want || out.Pay != tc.pay {
				t.Fatalf("Evaluate(%d/%d) = {%d, %v}, want {%d, %v}",
					tc.correct, tc.total, out.AmountCents, out.Pay, tc.want, tc.pay)
			}
		})
	}
}

func TestEvaluateSmallAutoSetNeverPays(t *testing.T) {
	p := DefaultPolicy()
	out := p.Evaluate(models.UnitQuizSet, true, 5, 5, 500)
	if out.Pay {
		t.Fatalf("a 5-item auto set paid %d; sets smaller than CorrectPerUnit cannot pay", out.AmountCents)
	}
}

func TestEvaluateManualSetAllOrNothing(t *testing.T) {
	p := DefaultPolicy()

	out := p.Evaluate(models.UnitMathSet, false, 15, 15, 300)
	if !out.Pay || out.AmountCents != 300 {
		t.Fatalf("perfect manual set = {%d, %v}, want {300, true}", out.AmountCents, out.Pay)
	}

	out = p.Evaluate(models.UnitMathSet, false, 14, 15, 300)
	if out.Pay || out.AmountCents != 0 {
		t.Fatalf("14/15 manual set = {%d, %v}, want no payout", out.AmountCents, out.Pay)
	}
}

func TestEvaluateCapAppliesWithLoosePolicy(t *testing.T) {
	p := Policy{AutoQuizUnitCents: 100, AutoQuizCapCents: 250, CorrectPerUnit: 5}
	out := p.Evaluate(models.UnitQuizSet, true, 20, 20, 0)
	if out.AmountCents != 250 {
		t.Fatalf("cap not applied: got %d, want 250", out.AmountCents)
	}
}

func TestApproval(t *testing.T) {
	p := DefaultPolicy()
	if out := p.Approval(150); !out.Pay || out.AmountCents != 150 {
		t.Fatalf("Approval(150) = {%d, %v}", out.AmountCents, out.Pay)
	}
	if out := p.Approval(0); out.Pay {
		t.Fatal("Approval(0) should not pay")
	}
}
