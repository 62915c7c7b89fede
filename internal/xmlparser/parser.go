// Package xmlparser reads JUnit-style XML reports into the canonical result
// model, falling back to the line parser for any embedded runner output.
package xmlparser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/newhook/testnorm/internal/detect"
	"github.com/newhook/testnorm/internal/lineparser"
	"github.com/newhook/testnorm/internal/logging"
	"github.com/newhook/testnorm/internal/testcase"
)

// Options control a single parse.
type Options struct {
	// Target is the owning target identifier stamped on every case.
	Target string
	// PackagePath is the target's declared package path, used to prefer
	// locations inside the package under test.
	PackagePath string
}

// Parser decodes structured result documents.
type Parser struct {
	lines *lineparser.Parser
}

// New returns a parser that runs embedded system-out text through lines.
func New(lines *lineparser.Parser) *Parser {
	return &Parser{lines: lines}
}

// Parse decodes a JUnit-style document. Malformed or partial documents
// yield whatever cases were read before the error; a document without any
// testcase elements yields an empty result.
func (p *Parser) Parse(data []byte, opts Options) *testcase.Result {
	return p.ParseReader(bytes.NewReader(data), opts)
}

// ParseReader is Parse over a stream.
func (p *Parser) ParseReader(r io.Reader, opts Options) *testcase.Result {
	doc := decode(r)

	structured := &testcase.Result{Cases: make([]testcase.Case, 0, len(doc.cases))}
	for _, el := range doc.cases {
		if el.name == "" {
			logging.Debug("skipping unnamed testcase", "classname", el.classname, "target", opts.Target)
			continue
		}
		tc := el.toCase(opts.Target)
		if !tc.HasLocation() && tc.Message != "" {
			if file, line, ok := RecoverLocation(tc.Message, opts.PackagePath); ok {
				tc.File, tc.Line = file, line
			}
		}
		structured.Cases = append(structured.Cases, tc)
	}
	structured.Tally()

	out := strings.TrimSpace(doc.systemOut.String())
	if out == "" {
		return structured
	}
	return Merge(structured, p.parseOutput(out, opts.Target))
}

// parseOutput runs system-out text through the line parser, narrowed by a
// sniff of the runner banner and retried unrestricted on zero matches.
func (p *Parser) parseOutput(text, target string) *testcase.Result {
	allowed := detect.SniffOutput(p.lines.Registry(), text)
	res := p.lines.Parse(text, lineparser.Options{Target: target, Allowed: allowed})
	if res.IsEmpty() && len(allowed) > 0 {
		res = p.lines.Parse(text, lineparser.Options{Target: target})
	}
	return res
}

// document is the flattened content of a report.
type document struct {
	cases     []*caseElement
	systemOut strings.Builder
}

type suiteElement struct {
	name string
	file string
}

// caseElement accumulates one <testcase> while its tokens stream past.
type caseElement struct {
	name      string
	classname string
	file      string
	line      int
	result    string
	suite     suiteElement

	outcome     string // failure, error or skipped
	outcomeType string
	message     string
	body        strings.Builder
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// decode walks the token stream. Suite nesting is tracked with a stack;
// testcase elements outside any suite belong to an implicit unnamed suite.
func decode(r io.Reader) *document {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.CharsetReader = charsetReader

	doc := &document{}
	var (
		suites  []suiteElement
		current *caseElement
		inText  string // element whose character data is being collected
		depth   int    // nesting inside the outcome or system-out element
	)

	for {
		tok, err := d.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logging.Debug("xml decode stopped early", "error", err, "cases", len(doc.cases))
			}
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if inText != "" {
				depth++
				continue
			}
			switch strings.ToLower(t.Name.Local) {
			case "testsuite":
				suites = append(suites, suiteElement{name: attr(t, "name"), file: attr(t, "file")})
			case "testcase":
				current = &caseElement{
					name:      attr(t, "name"),
					classname: attr(t, "classname"),
					file:      attr(t, "file"),
					result:    attr(t, "result"),
				}
				if current.result == "" {
					current.result = attr(t, "status")
				}
				current.line, _ = strconv.Atoi(attr(t, "line"))
				if len(suites) > 0 {
					current.suite = suites[len(suites)-1]
				}
				doc.cases = append(doc.cases, current)
			case "failure", "error", "skipped":
				if current == nil {
					continue
				}
				kind := strings.ToLower(t.Name.Local)
				// A failure or error outranks a skip on the same case.
				if current.outcome == "" || kind != "skipped" {
					current.outcome = kind
					current.outcomeType = attr(t, "type")
					current.message = attr(t, "message")
					current.body.Reset()
				}
				inText = kind
			case "system-out":
				if doc.systemOut.Len() > 0 {
					doc.systemOut.WriteByte('\n')
				}
				inText = "system-out"
			}

		case xml.EndElement:
			if inText != "" {
				if depth > 0 {
					depth--
					continue
				}
				inText = ""
				continue
			}
			switch strings.ToLower(t.Name.Local) {
			case "testsuite":
				if len(suites) > 0 {
					suites = suites[:len(suites)-1]
				}
			case "testcase":
				current = nil
			}

		case xml.CharData:
			switch {
			case inText == "system-out":
				doc.systemOut.Write(t)
			case inText != "" && current != nil && inText == current.outcome:
				current.body.Write(t)
			}
		}
	}
	return doc
}

func (el *caseElement) toCase(target string) testcase.Case {
	tc := testcase.Case{
		Name:   el.name,
		File:   el.file,
		Line:   el.line,
		Target: target,
		Class:  el.classname,
		Status: el.status(),
	}
	if tc.File == "" {
		tc.File = el.suite.file
	}
	if tc.Class == "" {
		tc.Suite = el.suite.name
	}
	if el.outcome != "" {
		tc.Message = joinMessage(el.message, el.body.String())
	}
	tc.Group = testcase.GroupKey(tc.Scope(), tc.Name)
	return tc
}

func (el *caseElement) status() testcase.Status {
	switch el.outcome {
	case "failure", "error":
		if strings.Contains(strings.ToLower(el.outcomeType), "timeout") {
			return testcase.StatusTimeout
		}
		return testcase.StatusFail
	case "skipped":
		return testcase.StatusSkip
	}
	if el.result != "" && testcase.NormalizeStatus(el.result) == testcase.StatusTimeout {
		return testcase.StatusTimeout
	}
	return testcase.StatusPass
}

func joinMessage(message, body string) string {
	message = strings.TrimSpace(message)
	body = strings.TrimSpace(body)
	switch {
	case message == "":
		return body
	case body == "":
		return message
	default:
		return message + "\n" + body
	}
}
