package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/logging"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/render"
)

const invoiceTemplate = `
template_name: Invoice
template_code: invoice
file_matching_patterns: ["invoice_*"]
classification:
  deny_keywords: [total, name]
primary:
  fields:
    code: {column: 0, pattern: regex, regex: '^\d{3}$'}
    name: {column: 1}
    quantity: {column: 2}
    cost: {column: 3, fallback: last}
secondary:
  fields:
    name: {column: 0}
    weight: {column: 1, fallback: last}
`

func setup(t *testing.T) (*config.MainConfig, map[string]*config.TemplateConfig, string) {
	t.Helper()
	dir := t.TempDir()

	tmpl, err := config.ParseTemplateConfig([]byte(invoiceTemplate))
	require.NoError(t, err)

	cfg := config.DefaultMainConfig()
	cfg.OutputDir = filepath.Join(dir, "out")

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("invoice_7.csv", "Code,Name,Qty,Cost\n001,Sofa Grand,10,1500\n002,Chair Basic,5,300\n002,Stool,,\n")
	write("waybill.csv", "Sofa Grand,45.2\nChair Basic,12.0\nTable Oak,9\n")

	return cfg, map[string]*config.TemplateConfig{
		"invoice": tmpl,
		"default": config.DefaultTemplate(),
	}, dir
}

func TestRunReconcile(t *testing.T) {
	cfg, templates, dir := setup(t)

	var out bytes.Buffer
	summary, err := runReconcile(reconcileOptions{
		primary:   filepath.Join(dir, "invoice_7.csv"),
		secondary: filepath.Join(dir, "waybill.csv"),
		format:    "json",
		gapLog:    true,
	}, cfg, templates, logging.Discard(), &out)
	require.NoError(t, err)

	assert.Equal(t, "invoice", summary.Template)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.Gaps)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, "15.000", summary.Totals["quantity"])
	assert.Equal(t, "1800.00", summary.Totals["cost"])
	assert.Equal(t, "57.20", summary.Totals["weight"])
	assert.Contains(t, out.String(), summary.RunID)

	// Output file.
	assert.Equal(t, cfg.OutputDir, filepath.Dir(summary.OutputFile))
	assert.Equal(t, ".json", filepath.Ext(summary.OutputFile))
	data, err := os.ReadFile(summary.OutputFile)
	require.NoError(t, err)
	var view render.View
	require.NoError(t, json.Unmarshal(data, &view))
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Chair Basic", view.Rows[1].Name)

	// Gap log.
	require.NotEmpty(t, summary.GapLogFile)
	gapLog, err := os.ReadFile(summary.GapLogFile)
	require.NoError(t, err)
	assert.Contains(t, string(gapLog), "Total Gaps: 2")
	assert.Contains(t, string(gapLog), "invoice_7.csv")
	assert.Contains(t, string(gapLog), "Table Oak")
}

func TestRunReconcileOutputPathSetsFormat(t *testing.T) {
	cfg, templates, dir := setup(t)
	output := filepath.Join(dir, "report", "summary.html")

	summary, err := runReconcile(reconcileOptions{
		primary:   filepath.Join(dir, "invoice_7.csv"),
		secondary: filepath.Join(dir, "waybill.csv"),
		output:    output,
	}, cfg, templates, logging.Discard(), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, output, summary.OutputFile)
	assert.Empty(t, summary.GapLogFile)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<table")
}

func TestRunReconcileErrors(t *testing.T) {
	cfg, templates, dir := setup(t)

	tests := []struct {
		name string
		opts reconcileOptions
	}{
		{"unknown template", reconcileOptions{
			primary: filepath.Join(dir, "invoice_7.csv"), secondary: filepath.Join(dir, "waybill.csv"), templateCode: "nope"}},
		{"unknown format", reconcileOptions{
			primary: filepath.Join(dir, "invoice_7.csv"), secondary: filepath.Join(dir, "waybill.csv"), format: "pdf"}},
		{"missing primary", reconcileOptions{
			primary: filepath.Join(dir, "absent.csv"), secondary: filepath.Join(dir, "waybill.csv")}},
		{"unsupported secondary", reconcileOptions{
			primary: filepath.Join(dir, "invoice_7.csv"), secondary: filepath.Join(dir, "waybill.pdf")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runReconcile(tt.opts, cfg, templates, logging.Discard(), &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestValidateTemplates(t *testing.T) {
	cfg, templates, _ := setup(t)

	var out bytes.Buffer
	require.NoError(t, validateTemplates(cfg, templates, &out))
	assert.Contains(t, out.String(), "✓ invoice (Invoice)")
	assert.Contains(t, out.String(), "2 template(s)")

	cfg.DefaultTemplate = "missing"
	out.Reset()
	assert.Error(t, validateTemplates(cfg, templates, &out))
	assert.Contains(t, out.String(), `default_template "missing"`)
}
