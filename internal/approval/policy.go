// Package approval implements the human-in-the-loop approval gate consulted
// by Planning before a tool call proceeds to Acting: risk levels, approval
// policies, and the decision a callback hands back to WaitingForHuman.
package approval

import (
	"encoding/json"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// RiskLevel is an ordered risk classification for a tool. Higher values
// compare greater, so "risk >= threshold" is a plain integer comparison.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

// policyKind tags the variant held by a Policy.
type policyKind int

const (
	kindNeverAsk policyKind = iota
	kindAlwaysAsk
	kindAskAbove
	kindToolBased
)

// Policy decides whether a proposed tool call must pause for human sign-off.
// It implements engine.ApprovalPolicy. The zero value is NeverAsk; use the
// constructors below to build the other variants.
type Policy struct {
	kind       policyKind
	threshold  RiskLevel
	toolRisk   map[string]RiskLevel
}

// AlwaysAsk returns a policy that requires approval for every tool call.
func AlwaysAsk() Policy { return Policy{kind: kindAlwaysAsk} }

// NeverAsk returns a policy that never requires approval.
func NeverAsk() Policy { return Policy{kind: kindNeverAsk} }

// AskAbove returns a policy that requires approval when a tool's risk is at
// or above threshold. Tools not otherwise classified default to RiskMedium.
func AskAbove(threshold RiskLevel) Policy {
	return Policy{kind: kindAskAbove, threshold: threshold}
}

// ToolBased returns a policy keyed by explicit per-tool risk levels.
// Per spec §9's open-question resolution, a tool not present in risks
// defaults to RiskLow, and approval is required when its risk is at or
// above threshold. threshold is used as given: its zero value is RiskLow,
// not RiskHigh; ToolBasedWithDefault applies the RiskHigh default.
func ToolBased(risks map[string]RiskLevel, threshold RiskLevel) Policy {
	return Policy{kind: kindToolBased, toolRisk: risks, threshold: threshold}
}

// ToolBasedWithDefault is ToolBased with the documented default threshold
// of RiskHigh.
func ToolBasedWithDefault(risks map[string]RiskLevel) Policy {
	return ToolBased(risks, RiskHigh)
}

// NeedsApproval implements engine.ApprovalPolicy.
func (p Policy) NeedsApproval(tool engine.ToolCall) bool {
	switch p.kind {
	case kindAlwaysAsk:
		return true
	case kindNeverAsk:
		return false
	case kindAskAbove:
		return RiskMedium >= p.threshold
	case kindToolBased:
		risk, ok := p.toolRisk[tool.Name]
		if !ok {
			risk = RiskLow
		}
		return risk >= p.threshold
	default:
		return false
	}
}

var _ engine.ApprovalPolicy = Policy{}

// Request mirrors engine.ApprovalRequest with a risk level attached, handed
// to an approval UI or audit log alongside the raw engine request.
type Request struct {
	Tool      engine.ToolCall
	SessionId string
	Step      int
	Risk      RiskLevel
	Reason    string
}

// FromEngineRequest augments an engine.ApprovalRequest with the risk this
// policy assigns to the proposed tool.
func (p Policy) FromEngineRequest(req engine.ApprovalRequest, reason string) Request {
	risk := RiskLow
	if p.kind == kindToolBased {
		if r, ok := p.toolRisk[req.Tool.Name]; ok {
			risk = r
		}
	} else if p.kind == kindAlwaysAsk || p.kind == kindAskAbove {
		risk = RiskMedium
	}
	return Request{Tool: req.Tool, SessionId: req.SessionId, Step: req.Step, Risk: risk, Reason: reason}
}

// Approved returns a HumanDecision accepting the tool call unchanged.
func Approved() engine.HumanDecision {
	return engine.HumanDecision{Kind: engine.DecisionApproved}
}

// Rejected returns a HumanDecision refusing the tool call with reason.
func Rejected(reason string) engine.HumanDecision {
	return engine.HumanDecision{Kind: engine.DecisionRejected, Reason: reason}
}

// Modified returns a HumanDecision replacing the tool call with a patched
// name/args pair.
func Modified(name string, args json.RawMessage) engine.HumanDecision {
	return engine.HumanDecision{Kind: engine.DecisionModified, Modified: engine.ToolCall{Name: name, Args: args}}
}
