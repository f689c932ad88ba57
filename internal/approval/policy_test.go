package approval

import (
	"testing"

	"github.com/pocketomega/fsmagent/internal/engine"
)

func TestAlwaysAsk_RequiresApprovalForEveryTool(t *testing.T) {
	p := AlwaysAsk()
	if !p.NeedsApproval(engine.ToolCall{Name: "anything"}) {
		t.Error("AlwaysAsk should require approval regardless of tool")
	}
}

func TestNeverAsk_NeverRequiresApproval(t *testing.T) {
	p := NeverAsk()
	if p.NeedsApproval(engine.ToolCall{Name: "rm_rf"}) {
		t.Error("NeverAsk should never require approval")
	}
}

func TestToolBased_UsesPerToolRiskAgainstThreshold(t *testing.T) {
	p := ToolBased(map[string]RiskLevel{
		"read_file":  RiskLow,
		"send_email": RiskHigh,
	}, RiskHigh)

	if p.NeedsApproval(engine.ToolCall{Name: "read_file"}) {
		t.Error("a low-risk classified tool should not need approval at RiskHigh threshold")
	}
	if !p.NeedsApproval(engine.ToolCall{Name: "send_email"}) {
		t.Error("a high-risk classified tool should need approval at RiskHigh threshold")
	}
}

func TestToolBased_UnclassifiedToolDefaultsToRiskLow(t *testing.T) {
	p := ToolBased(map[string]RiskLevel{}, RiskLow)
	if !p.NeedsApproval(engine.ToolCall{Name: "unclassified"}) {
		t.Error("an unclassified tool defaults to RiskLow, which should need approval at a RiskLow threshold")
	}
}

func TestToolBasedWithDefault_ThresholdIsRiskHigh(t *testing.T) {
	p := ToolBasedWithDefault(map[string]RiskLevel{"x": RiskMedium})
	if p.NeedsApproval(engine.ToolCall{Name: "x"}) {
		t.Error("RiskMedium should not need approval under the RiskHigh default threshold")
	}
}

func TestFromEngineRequest_CarriesToolBasedRisk(t *testing.T) {
	p := ToolBased(map[string]RiskLevel{"send_email": RiskHigh}, RiskHigh)
	req := engine.ApprovalRequest{Tool: engine.ToolCall{Name: "send_email"}, SessionId: "s1", Step: 3}

	r := p.FromEngineRequest(req, "looks risky")
	if r.Risk != RiskHigh {
		t.Errorf("Risk = %v, want RiskHigh", r.Risk)
	}
	if r.SessionId != "s1" || r.Step != 3 || r.Reason != "looks risky" {
		t.Errorf("Request = %+v, did not carry through engine request fields", r)
	}
}

func TestDecisionConstructors(t *testing.T) {
	if d := Approved(); d.Kind != engine.DecisionApproved {
		t.Errorf("Approved().Kind = %v, want DecisionApproved", d.Kind)
	}
	if d := Rejected("no"); d.Kind != engine.DecisionRejected || d.Reason != "no" {
		t.Errorf("Rejected(\"no\") = %+v, want Kind=DecisionRejected Reason=no", d)
	}
	if d := Modified("echo", []byte(`{"x":1}`)); d.Kind != engine.DecisionModified || d.Modified.Name != "echo" {
		t.Errorf("Modified(...) = %+v, want Kind=DecisionModified Modified.Name=echo", d)
	}
}
