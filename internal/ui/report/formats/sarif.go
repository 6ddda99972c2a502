// # internal/ui/report/formats/sarif.go
package formats

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"depsentry/internal/engine/findings"
	"depsentry/internal/shared/version"
)

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
	toolName     = "depsentry"
	srcRoot      = "%SRCROOT%"

	// fingerprintKey names the partialFingerprints entry. Bump the suffix if
	// the hashed fields change.
	fingerprintKey = "depsentryFinding/v1"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	ShortDescription     sarifText    `json:"shortDescription"`
	DefaultConfiguration sarifDefault `json:"defaultConfiguration"`
}

type sarifDefault struct {
	Level string `json:"level"`
}

type sarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUTC        string `json:"startTimeUtc,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	RelatedLocations    []sarifLocation   `json:"relatedLocations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
	Fixes               []sarifFix        `json:"fixes,omitempty"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	ID               int           `json:"id,omitempty"`
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// sarifFix carries the remediation text only. No artifact edits are emitted.
type sarifFix struct {
	Description sarifText `json:"description"`
}

type ruleInfo struct {
	id, name, description string
}

var sarifRules = map[findings.Kind]ruleInfo{
	findings.KindCircularDependency: {"DEPS001", "CircularDependency", "Modules import each other directly or transitively."},
	findings.KindMissingDependency:  {"DEPS002", "MissingDependency", "An import refers to a package that is not declared or a path that does not exist."},
	findings.KindVersionConflict:    {"DEPS003", "VersionConflict", "A package is declared with incompatible versions."},
	findings.KindDeprecatedPackage:  {"DEPS004", "DeprecatedPackage", "A declared package is deprecated."},
	findings.KindUnusedImport:       {"DEPS005", "UnusedImport", "An imported binding is never referenced."},
	findings.KindDuplicateImport:    {"DEPS006", "DuplicateImport", "A module is imported more than once in the same file."},
}

// GenerateSARIF builds a SARIF 2.1.0 log with one rule per finding kind
// present. URIs are relative to the analysis root.
func GenerateSARIF(result *findings.AnalysisResult) ([]byte, error) {
	root := result.Metadata.RootDir
	rules, ruleIndex := sarifRuleTable(result.Findings)

	results := make([]sarifResult, 0, len(result.Findings))
	for _, f := range result.Findings {
		idx, ok := ruleIndex[f.Kind]
		if !ok {
			continue
		}
		res := sarifResult{
			RuleID:              rules[idx].ID,
			RuleIndex:           idx,
			Level:               severityLevel(f.Severity),
			Message:             sarifText{Text: f.Message},
			PartialFingerprints: map[string]string{fingerprintKey: fingerprint(root, f)},
		}
		if f.File != "" {
			res.Locations = []sarifLocation{artifactAt(root, f.File, f.Line)}
		}
		if f.Cycle != nil {
			for i, file := range f.Cycle.Files {
				if file == f.File {
					continue
				}
				loc := artifactAt(root, file, 0)
				loc.ID = i + 1
				res.RelatedLocations = append(res.RelatedLocations, loc)
			}
		}
		if f.Suggestion != "" {
			res.Fixes = []sarifFix{{Description: sarifText{Text: f.Suggestion}}}
		}
		results = append(results, res)
	}

	inv := sarifInvocation{ExecutionSuccessful: true}
	if ts := result.Metadata.AnalysisTimestamp; !ts.IsZero() {
		inv.StartTimeUTC = ts.UTC().Format("2006-01-02T15:04:05Z")
	}

	log := sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool:        sarifTool{Driver: sarifDriver{Name: toolName, Version: version.Version, Rules: rules}},
			Invocations: []sarifInvocation{inv},
			Results:     results,
		}},
	}
	return json.MarshalIndent(log, "", "  ")
}

// sarifRuleTable lists the rules for the kinds present in report order and
// maps each kind to its index in that list.
func sarifRuleTable(list []findings.Finding) ([]sarifRule, map[findings.Kind]int) {
	present := make(map[findings.Kind]bool)
	for _, f := range list {
		present[f.Kind] = true
	}
	thresholds := findings.DefaultThresholds()
	rules := make([]sarifRule, 0, len(present))
	index := make(map[findings.Kind]int, len(present))
	for _, kind := range findings.Kinds {
		info, ok := sarifRules[kind]
		if !ok || !present[kind] {
			continue
		}
		index[kind] = len(rules)
		rules = append(rules, sarifRule{
			ID:                   info.id,
			Name:                 info.name,
			ShortDescription:     sarifText{Text: info.description},
			DefaultConfiguration: sarifDefault{Level: severityLevel(thresholds[kind])},
		})
	}
	return rules, index
}

func artifactAt(root, file string, line int) sarifLocation {
	loc := sarifLocation{PhysicalLocation: sarifPhysical{
		ArtifactLocation: sarifArtifact{URI: relPath(root, file), URIBaseID: srcRoot},
	}}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line}
	}
	return loc
}

// fingerprint identifies a finding across runs. Line numbers are left out so
// unrelated edits above a finding do not make it look new.
func fingerprint(root string, f findings.Finding) string {
	parts := []string{string(f.Kind), relPath(root, f.File), f.ImportToken}
	if f.Cycle != nil {
		for _, file := range f.Cycle.Files {
			parts = append(parts, relPath(root, file))
		}
	}
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "\x00")), 16)
}

// severityLevel maps a finding severity to a SARIF level.
func severityLevel(s findings.Severity) string {
	switch s {
	case findings.SeverityHigh:
		return "error"
	case findings.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
