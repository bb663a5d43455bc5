package resolve

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

// BuiltinDenylist holds part numbers that are never looked up.
var BuiltinDenylist = []string{"804329-002"}

// Policy is the operator-maintained lookup policy, read from policy.yaml.
type Policy struct {
	// Denylist entries resolve straight to a manual-review row without any
	// network call. BuiltinDenylist is always included.
	Denylist []string `yaml:"denylist"`
	// PhotoOnly entries are routed to ShowPhoto only.
	PhotoOnly []string `yaml:"photo_only"`

	denied map[model.PartNumber]struct{}
}

// DefaultPolicy returns a policy holding only the built-in denylist.
func DefaultPolicy() *Policy {
	p := &Policy{}
	p.compile()
	return p
}

// LoadPolicy reads a YAML policy file. A missing file yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Debug("resolve: no policy file, using defaults", zap.String("path", path))
		return DefaultPolicy(), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read policy %s", path)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	p := &Policy{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrap(err, "resolve: parse policy")
	}
	p.compile()
	return p, nil
}

func (p *Policy) compile() {
	p.denied = make(map[model.PartNumber]struct{})
	for _, raw := range append(append([]string(nil), BuiltinDenylist...), p.Denylist...) {
		pn, err := partnum.Normalize(raw)
		if err != nil {
			zap.L().Warn("resolve: skipping invalid denylist entry", zap.String("entry", raw))
			continue
		}
		p.denied[pn] = struct{}{}
	}
}

// Denied reports whether pn is on the denylist. A nil or uncompiled policy
// applies the built-in list only.
func (p *Policy) Denied(pn model.PartNumber) bool {
	if p == nil || p.denied == nil {
		for _, raw := range BuiltinDenylist {
			if string(pn) == raw {
				return true
			}
		}
		return false
	}
	_, ok := p.denied[pn]
	return ok
}

// PhotoOnlyParts returns the normalized photo-only entries.
func (p *Policy) PhotoOnlyParts() []model.PartNumber {
	if p == nil {
		return nil
	}
	out := make([]model.PartNumber, 0, len(p.PhotoOnly))
	for _, raw := range p.PhotoOnly {
		if pn, err := partnum.Normalize(raw); err == nil {
			out = append(out, pn)
		}
	}
	return out
}
