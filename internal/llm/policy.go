package llm

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Route names the backend and model serving a request.
type Route struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
}

// Policy is the read-only routing configuration mapping (agent, task type)
// pairs to preferred routes, with a global default and a single fallback
// route used when the selected backend fails.
type Policy struct {
	Default  Route                       `yaml:"default"`
	Fallback Route                       `yaml:"fallback"`
	Agents   map[string]map[string]Route `yaml:"agents"`
}

// Select returns the route for an agent/task pair, falling back to the
// global default when no specific rule exists.
func (p Policy) Select(agentName, taskType string) Route {
	if tasks, ok := p.Agents[agentName]; ok {
		if r, ok := tasks[taskType]; ok && r.Backend != "" {
			return r
		}
	}
	return p.Default
}

// LoadPolicy reads a routing policy from a YAML file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "llm: read policy %s", path)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, eris.Wrap(err, "llm: parse policy")
	}
	if p.Default.Backend == "" {
		return Policy{}, eris.New("llm: policy missing default route")
	}
	return p, nil
}

// DefaultPolicy returns the built-in routing table: deep-reasoning models
// for analysis and evaluation, the mid-tier model for drafting, the cheap
// model for per-requirement compliance mapping.
func DefaultPolicy() Policy {
	opus := Route{Backend: "anthropic", Model: "claude-opus-4-5-20251101"}
	sonnet := Route{Backend: "anthropic", Model: "claude-sonnet-4-5-20250929"}
	haiku := Route{Backend: "anthropic", Model: "claude-haiku-4-5-20251001"}

	return Policy{
		Default:  sonnet,
		Fallback: Route{Backend: "openai", Model: "gpt-4o"},
		Agents: map[string]map[string]Route{
			"Strategic Analyst": {
				"analysis": opus,
			},
			"Structure Designer": {
				"design": sonnet,
			},
			"Content Generator": {
				"narrative":  sonnet,
				"compliance": haiku,
			},
			"Quality Validator": {
				"evaluation": opus,
			},
			"Compliance Extractor": {
				"extraction": sonnet,
			},
			"Compliance Mapper": {
				"mapping": haiku,
			},
		},
	}
}
