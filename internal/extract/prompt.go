package extract

import (
	"embed"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tyler-sommer/stick"

	"github.com/sells-group/leadgen-cli/internal/model"
)

//go:embed templates/*.twig
var templateFS embed.FS

var targetCities = []string{
	"Toronto", "Vancouver", "Ottawa", "Mississauga", "Hamilton", "Kitchener",
	"Waterloo", "London", "Brampton", "Markham", "Vaughan", "Oakville",
	"Burlington", "Guelph", "Kingston", "Victoria", "Surrey", "Burnaby",
	"Richmond", "Kelowna",
}

var signalTypes = []string{
	model.SignalLiquidityEvent,
	model.SignalRapidScaling,
	model.SignalMajorDonation,
	model.SignalExit,
	model.SignalIPO,
}

// Prompts renders the system and user prompts from the embedded twig
// templates.
type Prompts struct {
	env       *stick.Env
	templates map[string]string
}

// NewPrompts loads the embedded templates.
func NewPrompts() (*Prompts, error) {
	p := &Prompts{env: stick.New(nil), templates: make(map[string]string)}
	for _, name := range []string{"system", "user"} {
		b, err := templateFS.ReadFile("templates/" + name + ".twig")
		if err != nil {
			return nil, eris.Wrapf(err, "extract: read template %s", name)
		}
		p.templates[name] = strings.TrimRight(string(b), "\n")
	}
	return p, nil
}

// System renders the fixed analyst instruction.
func (p *Prompts) System() (string, error) {
	quoted := make([]string, len(signalTypes))
	for i, s := range signalTypes {
		quoted[i] = `"` + s + `"`
	}
	return p.render("system", map[string]stick.Value{
		"regions":          "Ontario or British Columbia",
		"cities":           strings.Join(targetCities, ", "),
		"signal_types":     strings.Join(quoted, ", "),
		"min_signal_types": 3,
		"wealth_band":      "$30M to $200M",
	})
}

// User renders the per-attempt prompt: the corpus, the exclusion clause when
// leads were already found, and the requested count.
func (p *Prompts) User(req Request) (string, error) {
	return p.render("user", map[string]stick.Value{
		"corpus":          req.Corpus,
		"has_exclusions":  len(req.ExcludeNames) > 0,
		"exclude_names":   strings.Join(req.ExcludeNames, ", "),
		"exclude_sources": strings.Join(req.ExcludeSources, ", "),
		"count":           req.Count,
		"gap":             "\n\n",
	})
}

func (p *Prompts) render(name string, vars map[string]stick.Value) (string, error) {
	var out strings.Builder
	if err := p.env.Execute(p.templates[name], &out, vars); err != nil {
		return "", eris.Wrapf(err, "extract: render %s prompt", name)
	}
	return out.String(), nil
}
