package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/JIMMY-KSU/modelstore/internal/config"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

const shortDigestLen = 12

// modelView is the machine-readable form of one model's metadata.
type modelView struct {
	Name             string    `json:"name" yaml:"name"`
	Type             string    `json:"type" yaml:"type"`
	Created          time.Time `json:"created" yaml:"created"`
	Repr             string    `json:"repr" yaml:"repr"`
	Str              string    `json:"str" yaml:"str"`
	Digest           string    `json:"digest" yaml:"digest"`
	ProducingVersion string    `json:"producing_version" yaml:"producing_version"`
	FormatVersion    int       `json:"format_version" yaml:"format_version"`
	Encoding         string    `json:"encoding" yaml:"encoding"`
	PayloadSize      int64     `json:"payload_size" yaml:"payload_size"`
	SavedChain       bool      `json:"saved_chain" yaml:"saved_chain"`
	Owner            string    `json:"owner,omitempty" yaml:"owner,omitempty"`
	Upstream         string    `json:"upstream,omitempty" yaml:"upstream,omitempty"`
}

// fileView is the machine-readable listing of one container.
type fileView struct {
	Path   string      `json:"path" yaml:"path"`
	Models []modelView `json:"models" yaml:"models"`
}

func newModelView(m container.Metadata) modelView {
	return modelView{
		Name:             m.Name,
		Type:             m.Type,
		Created:          m.Created,
		Repr:             m.ClassRepr,
		Str:              m.ClassStr,
		Digest:           m.Digest,
		ProducingVersion: m.ProducingVersion,
		FormatVersion:    m.FormatVersion,
		Encoding:         m.Encoding,
		PayloadSize:      m.PayloadSize,
		SavedChain:       m.SavedChain,
		Owner:            m.Owner,
		Upstream:         m.Upstream,
	}
}

func newFileViews(listings []store.FileListing) []fileView {
	out := make([]fileView, 0, len(listings))
	for _, l := range listings {
		fv := fileView{Path: l.Path, Models: make([]modelView, 0, len(l.Models))}
		for _, m := range l.Models {
			fv.Models = append(fv.Models, newModelView(m))
		}
		out = append(out, fv)
	}
	return out
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidOutputFormat, format)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func heading(w io.Writer, text string) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, text)
}

func shortDigest(d string) string {
	if len(d) > shortDigestLen {
		return d[:shortDigestLen]
	}
	return d
}

func chainMark(m container.Metadata) string {
	switch {
	case m.IsChainMember():
		return "member of " + m.Owner
	case m.SavedChain:
		return "saved"
	default:
		return "-"
	}
}

// renderListing prints one table per container.
func renderListing(w io.Writer, listings []store.FileListing) {
	for i, l := range listings {
		if i > 0 {
			fmt.Fprintln(w)
		}
		heading(w, l.Path)
		if len(l.Models) == 0 {
			fmt.Fprintln(w, "  (no models)")
			continue
		}
		tw := newTable(w)
		tw.AppendHeader(table.Row{"Name", "Type", "Created", "Size", "Version", "Chain", "Digest"})
		for _, m := range l.Models {
			tw.AppendRow(table.Row{
				m.Name,
				m.Type,
				humanize.Time(m.Created),
				humanize.IBytes(uint64(max(m.PayloadSize, 0))),
				m.ProducingVersion,
				chainMark(m),
				shortDigest(m.Digest),
			})
		}
		tw.Render()
	}
}

// renderModel prints one model's metadata followed by its producer chain.
func renderModel(w io.Writer, path string, m container.Metadata, chain []container.Metadata) {
	heading(w, fmt.Sprintf("%s: %s", path, m.Name))
	tw := newTable(w)
	tw.AppendRows([]table.Row{
		{"Type", m.Type},
		{"Repr", m.ClassRepr},
		{"Str", m.ClassStr},
		{"Created", fmt.Sprintf("%s (%s)", m.Created.Format(time.RFC3339), humanize.Time(m.Created))},
		{"Digest", m.Digest},
		{"Producing version", m.ProducingVersion},
		{"Format version", m.FormatVersion},
		{"Encoding", m.Encoding},
		{"Payload size", humanize.IBytes(uint64(max(m.PayloadSize, 0)))},
		{"Saved chain", m.SavedChain},
	})
	tw.Render()

	if len(chain) == 0 {
		return
	}
	fmt.Fprintln(w)
	heading(w, "Producer chain (nearest first)")
	ct := newTable(w)
	ct.AppendHeader(table.Row{"#", "Group", "Type", "Str"})
	for i, c := range chain {
		ct.AppendRow(table.Row{i + 1, c.Name, c.Type, c.ClassStr})
	}
	ct.Render()
}

// renderVerify prints per-group verification results.
func renderVerify(w io.Writer, report *store.VerifyReport) {
	heading(w, report.Path)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	for _, g := range report.Groups {
		if g.Err != nil {
			bad.Fprintf(w, "  FAIL %s (%s): %v\n", g.Name, g.Type, g.Err)
			continue
		}
		ok.Fprintf(w, "  ok   %s (%s)\n", g.Name, g.Type)
	}
}

// verifyView is the machine-readable form of a verify report.
type verifyView struct {
	Path   string           `json:"path" yaml:"path"`
	OK     bool             `json:"ok" yaml:"ok"`
	Groups []groupCheckView `json:"groups" yaml:"groups"`
}

type groupCheckView struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newVerifyView(report *store.VerifyReport) verifyView {
	v := verifyView{Path: report.Path, OK: report.OK(), Groups: make([]groupCheckView, 0, len(report.Groups))}
	for _, g := range report.Groups {
		gv := groupCheckView{Name: g.Name, Type: g.Type}
		if g.Err != nil {
			gv.Error = g.Err.Error()
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}
