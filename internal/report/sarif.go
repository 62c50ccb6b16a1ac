package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/safefile"
	"github.com/KumVivek/copilot-instruction-agent/internal/version"
)

// SARIF v2.1.0 types — minimal subset for GitHub Code Scanning / Azure DevOps.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Version        string      `json:"version"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name,omitempty"`
	ShortDescription sarifMessage        `json:"shortDescription,omitempty"`
	DefaultConfig    *sarifDefaultConfig `json:"defaultConfiguration,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID       string             `json:"ruleId"`
	Level        string             `json:"level"`
	Message      sarifMessage       `json:"message"`
	Locations    []sarifLocation    `json:"locations,omitempty"`
	Suppressions []sarifSuppression `json:"suppressions,omitempty"`
	Properties   *sarifProperties   `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifSuppression struct {
	Kind          string `json:"kind"`
	Justification string `json:"justification,omitempty"`
}

type sarifProperties struct {
	Severity    string `json:"severity,omitempty"`
	Category    string `json:"category,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Occurrences int    `json:"occurrences,omitempty"`
	Analyzer    string `json:"analyzer,omitempty"`
}

func WriteSARIF(path string, rep model.ScanReport) error {
	rep = redactReport(rep)
	log := buildSARIF(rep)
	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sarif report: %w", err)
	}
	if err := safefile.WriteFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("write sarif report: %w", err)
	}
	return nil
}

func buildSARIF(rep model.ScanReport) sarifLog {
	ruleIndex := map[string]int{}
	var rules []sarifRule
	var results []sarifResult

	for _, f := range rep.Findings {
		ruleID := strings.TrimSpace(f.PatternID)
		if ruleID == "" {
			ruleID = "copilot-agent-finding"
		}

		if _, seen := ruleIndex[ruleID]; !seen {
			ruleIndex[ruleID] = len(rules)
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             f.Name,
				ShortDescription: sarifMessage{Text: f.Name},
				DefaultConfig:    &sarifDefaultConfig{Level: mapSeverityToSARIF(f.Severity)},
			})
		}

		var locations []sarifLocation
		for _, loc := range f.Evidence {
			uri := strings.TrimSpace(loc.Path)
			if uri == "" {
				continue
			}
			var region *sarifRegion
			if loc.Line > 0 {
				region = &sarifRegion{StartLine: loc.Line}
			}
			locations = append(locations, sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region:           region,
				},
			})
		}

		var suppressions []sarifSuppression
		if f.Suppressed {
			suppressions = append(suppressions, sarifSuppression{
				Kind:          "external",
				Justification: f.SuppressionReason,
			})
		}

		results = append(results, sarifResult{
			RuleID:       ruleID,
			Level:        mapSeverityToSARIF(f.Severity),
			Message:      sarifMessage{Text: resultMessage(f)},
			Locations:    locations,
			Suppressions: suppressions,
			Properties: &sarifProperties{
				Severity:    string(f.Severity),
				Category:    f.Category,
				Kind:        string(f.Kind),
				Occurrences: f.Occurrences,
				Analyzer:    f.Analyzer,
			},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "copilot-agent",
					InformationURI: "https://github.com/KumVivek/copilot-instruction-agent",
					Version:        version.Version,
					Rules:          rules,
				},
			},
			Results: results,
		}},
	}
}

func resultMessage(f model.Finding) string {
	if f.Kind == model.KindRequiredPattern {
		return fmt.Sprintf("%s: required pattern absent from %d scanned file(s)", f.Name, f.Occurrences)
	}
	return fmt.Sprintf("%s: %d occurrence(s)", f.Name, f.Occurrences)
}

func mapSeverityToSARIF(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	case model.SeverityLow, model.SeverityInfo:
		return "note"
	default:
		return "note"
	}
}
