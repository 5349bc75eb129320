package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/recycle/errs"
)

// CapacitySetting encapsulates a pool capacity allowing both numeric and symbolic values.
type CapacitySetting struct {
	kind  capacityKind
	value int
}

type capacityKind int

const (
	capacityUnset capacityKind = iota
	capacityExplicit
	capacityUnbounded
)

// UnmarshalYAML supports non-negative integers and "unbounded" for pool capacities.
func (c *CapacitySetting) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*c = CapacitySetting{kind: capacityUnset, value: 0}
		return nil
	}

	text := strings.TrimSpace(node.Value)
	if text == "" {
		c.kind = capacityUnset
		c.value = 0
		return nil
	}

	if strings.EqualFold(text, "unbounded") {
		c.kind = capacityUnbounded
		c.value = 0
		return nil
	}

	val, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("capacity: invalid value %q", node.Value)
	}
	if val < 0 {
		return fmt.Errorf("capacity: value must be >= 0")
	}
	c.kind = capacityExplicit
	c.value = val
	return nil
}

// Resolve returns the effective capacity, falling back to the provided default
// when the manifest omitted the field. Zero means unbounded.
func (c CapacitySetting) Resolve(fallback int) int {
	switch c.kind {
	case capacityExplicit:
		return c.value
	case capacityUnbounded:
		return 0
	default:
		if fallback < 0 {
			return 0
		}
		return fallback
	}
}

// Explicit reports whether the manifest declared a capacity for the pool.
func (c CapacitySetting) Explicit() bool {
	return c.kind != capacityUnset
}

// PoolSpec declares one named pool in the manifest.
type PoolSpec struct {
	Name     string          `yaml:"name"`
	Capacity CapacitySetting `yaml:"capacity"`
	Prewarm  int             `yaml:"prewarm"`
}

// Manifest declares the set of pools an application registers at startup.
type Manifest struct {
	Pools []PoolSpec `yaml:"pools"`
}

// ParseManifest decodes and validates a YAML pool manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, errs.New("config", errs.CodeInvalid,
			errs.WithMessage("parse pool manifest"), errs.WithCause(err))
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads and parses the YAML pool manifest at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errs.New("config", errs.CodeNotFound,
			errs.WithMessage("read pool manifest"), errs.WithCause(err))
	}
	return ParseManifest(data)
}

func (m Manifest) validate() error {
	if len(m.Pools) == 0 {
		return errs.New("config", errs.CodeInvalid,
			errs.WithMessage("manifest declares no pools"),
			errs.WithRemediation("add at least one entry under pools:"))
	}
	seen := make(map[string]struct{}, len(m.Pools))
	for i, spec := range m.Pools {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errs.New("config", errs.CodeInvalid,
				errs.WithMessage(fmt.Sprintf("pool %d: name is required", i)))
		}
		if _, dup := seen[name]; dup {
			return errs.New("config", errs.CodeConflict,
				errs.WithMessage(fmt.Sprintf("pool %q declared twice", name)))
		}
		seen[name] = struct{}{}
		if spec.Prewarm < 0 {
			return errs.New("config", errs.CodeInvalid,
				errs.WithMessage(fmt.Sprintf("pool %q: prewarm must be >= 0", name)))
		}
		if capacity := spec.Capacity.Resolve(0); capacity > 0 && spec.Prewarm > capacity {
			return errs.New("config", errs.CodeInvalid,
				errs.WithMessage(fmt.Sprintf("pool %q: prewarm %d exceeds capacity %d", name, spec.Prewarm, capacity)))
		}
	}
	return nil
}
