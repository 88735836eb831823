package export

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownFormat is returned for an unregistered format identifier,
// before any invoice is read.
var ErrUnknownFormat = errors.New("unknown export format")

// Format identifiers for the eleven registered renderers.
const (
	FormatKPiR       = "kpir"       // canonical ledger CSV, comma decimal
	FormatRewizor    = "rewizor"    // CSV variant
	FormatRachmistrz = "rachmistrz" // CSV variant, dot decimal
	FormatOptima     = "optima"     // CSV variant
	FormatSafir      = "safir"      // CSV variant
	FormatWapro      = "wapro"      // tab-separated
	FormatSymfonia   = "symfonia"   // line-oriented key=value blocks
	FormatEnova      = "enova"      // line-oriented key=value blocks
	FormatEPP        = "epp"        // sectioned interchange text
	FormatJPK        = "jpk_pkpir"  // regulatory XML with control totals
	FormatLedgerXML  = "ledger_xml" // generic markup tree
)

// Renderer encodes shared ledger rows into one output format. Renderers
// are pure: identical rows must produce byte-identical output.
type Renderer interface {
	// ID is the registered format identifier.
	ID() string

	// Render encodes the rows.
	Render(rows []Row) ([]byte, error)

	// Filename derives the deterministic artifact name for a batch label.
	Filename(label string) string

	// MediaType is the artifact's media type.
	MediaType() string
}

// Registry holds the registered renderers.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry creates a registry with all eleven built-in formats.
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[string]Renderer)}
	for _, renderer := range builtinRenderers() {
		r.register(renderer)
	}
	return r
}

func (r *Registry) register(renderer Renderer) {
	if _, exists := r.renderers[renderer.ID()]; exists {
		panic(fmt.Sprintf("duplicate export format: %s", renderer.ID()))
	}
	r.renderers[renderer.ID()] = renderer
}

// Get returns the renderer for a format id or ErrUnknownFormat.
func (r *Registry) Get(format string) (Renderer, error) {
	renderer, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return renderer, nil
}

// Formats lists the registered format identifiers, sorted.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.renderers))
	for id := range r.renderers {
		formats = append(formats, id)
	}
	sort.Strings(formats)
	return formats
}

func builtinRenderers() []Renderer {
	return []Renderer{
		newKPiRRenderer(),
		newRewizorRenderer(),
		newRachmistrzRenderer(),
		newOptimaRenderer(),
		newSafirRenderer(),
		newWaproRenderer(),
		newKVRenderer(FormatSymfonia, symfoniaLayout),
		newKVRenderer(FormatEnova, enovaLayout),
		newEPPRenderer(),
		newJPKRenderer(),
		newLedgerXMLRenderer(),
	}
}
