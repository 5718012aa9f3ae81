/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

const alertsPath = "../../deploy/prometheus/alerts.yml"

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

func loadAlerts(t *testing.T) []alertGroup {
	t.Helper()
	data, err := os.ReadFile(alertsPath)
	if err != nil {
		t.Skipf("Skipping test: alerts file not found at %s", alertsPath)
	}

	var config struct {
		Groups []alertGroup `yaml:"groups"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		t.Fatalf("Invalid YAML in alerts.yml: %v", err)
	}
	if len(config.Groups) == 0 {
		t.Fatal("alerts.yml 'groups' is empty")
	}
	return config.Groups
}

// TestCriticalAlertsPresent verifies critical alerts are defined.
func TestCriticalAlertsPresent(t *testing.T) {
	names := make(map[string]bool)
	for _, g := range loadAlerts(t) {
		for _, r := range g.Rules {
			names[r.Alert] = true
		}
	}

	for _, alertName := range []string{"HighAPIErrorRate", "ReplanFailing", "DatabaseDown"} {
		if !names[alertName] {
			t.Errorf("Critical alert '%s' not found in alerts.yml", alertName)
		}
	}
}

// TestAlertLabels verifies alerts have required labels.
func TestAlertLabels(t *testing.T) {
	for _, group := range loadAlerts(t) {
		for _, alert := range group.Rules {
			if alert.Alert == "" {
				continue // Skip recording rules
			}
			if _, ok := alert.Labels["severity"]; !ok {
				t.Errorf("Alert '%s' missing 'severity' label", alert.Alert)
			}
			if _, ok := alert.Annotations["summary"]; !ok {
				t.Errorf("Alert '%s' missing 'summary' annotation", alert.Alert)
			}
		}
	}
}

var fqNamePattern = regexp.MustCompile(`fqName: "([^"]+)"`)

func registeredNames() map[string]bool {
	collectors := []prometheus.Collector{
		APIRequestDuration, APIRequestsTotal, APIActiveConnections, APIWebSocketConnections, APIRateLimited,
		PlanRunsTotal, PlanDuration, PlanScheduledMinutes, PlanCacheTotal, ReplanRunsTotal,
		DatabaseQueryDuration, DatabaseErrorsTotal, DatabaseConnectionsActive,
		EventsPublished,
	}

	names := make(map[string]bool)
	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 4)
		c.Describe(ch)
		close(ch)
		for desc := range ch {
			if m := fqNamePattern.FindStringSubmatch(desc.String()); m != nil {
				names[m[1]] = true
			}
		}
	}
	return names
}

// TestAlertMetricsExist verifies every metric an alert queries is exported.
func TestAlertMetricsExist(t *testing.T) {
	known := registeredNames()
	metricRef := regexp.MustCompile(`weekplanner_[a-z_]+`)

	for _, group := range loadAlerts(t) {
		for _, alert := range group.Rules {
			for _, ref := range metricRef.FindAllString(alert.Expr, -1) {
				name := ref
				for _, suffix := range []string{"_bucket", "_count", "_sum"} {
					if trimmed := strings.TrimSuffix(name, suffix); known[trimmed] {
						name = trimmed
						break
					}
				}
				if !known[name] {
					t.Errorf("Alert '%s' references unknown metric %q", alert.Alert, ref)
				}
			}
		}
	}
}
