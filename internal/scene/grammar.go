package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"meshbatch/internal/config"
)

// Role identifies what a mesh file represents within a scene.
type Role int

const (
	RoleInterface Role = iota
	RoleSolid
	RoleDebris
)

func (r Role) String() string {
	switch r {
	case RoleInterface:
		return "interface"
	case RoleSolid:
		return "solid"
	case RoleDebris:
		return "debris"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

var (
	// ErrUnknownRole marks files whose first segment matches no role token.
	// Callers skip these without warning.
	ErrUnknownRole = errors.New("unknown role token")
	// ErrMalformedName marks names with fewer segments than their role needs.
	ErrMalformedName = errors.New("malformed mesh file name")
	// ErrInvalidIndex marks index segments that are not decimal digits.
	ErrInvalidIndex = errors.New("invalid index segment")
)

// ParseFailure reports a mesh file that matched a role but could not be parsed.
type ParseFailure struct {
	Path   string
	Role   Role
	Detail string
	Err    error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse %s (%s): %v: %s", filepath.Base(e.Path), e.Role, e.Err, e.Detail)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// MeshFileRef is a mesh file path with the fields parsed from its name.
type MeshFileRef struct {
	Path   string
	Role   Role
	Scene  int
	Sub    int
	HasSub bool
}

// Rule describes the filename layout for one role. Segment positions are
// zero-based and count the role token as segment 0. SubSegment is negative
// for roles without a sub index.
type Rule struct {
	Role         Role
	Tokens       []string
	SceneSegment int
	SubSegment   int
}

func (r Rule) minSegments() int {
	return max(r.SceneSegment, r.SubSegment) + 1
}

// Grammar maps role tokens to their filename layout.
type Grammar struct {
	rules map[string]Rule
}

// NewGrammar builds a grammar from rules. Tokens must be unique across rules.
func NewGrammar(rules ...Rule) (*Grammar, error) {
	g := &Grammar{rules: make(map[string]Rule)}
	for _, rule := range rules {
		if rule.SceneSegment < 1 {
			return nil, fmt.Errorf("%s rule: scene segment must be >= 1", rule.Role)
		}
		if rule.SubSegment == 0 || rule.SubSegment == rule.SceneSegment {
			return nil, fmt.Errorf("%s rule: sub segment must differ from the token and scene segments", rule.Role)
		}
		if len(rule.Tokens) == 0 {
			return nil, fmt.Errorf("%s rule: at least one token required", rule.Role)
		}
		for _, token := range rule.Tokens {
			if token == "" || strings.Contains(token, "_") {
				return nil, fmt.Errorf("%s rule: invalid token %q", rule.Role, token)
			}
			if existing, ok := g.rules[token]; ok {
				return nil, fmt.Errorf("token %q claimed by both %s and %s", token, existing.Role, rule.Role)
			}
			g.rules[token] = rule
		}
	}
	return g, nil
}

// GrammarFromConfig builds the grammar described by the [scenes] section.
func GrammarFromConfig(cfg config.Scenes) (*Grammar, error) {
	return NewGrammar(
		Rule{Role: RoleInterface, Tokens: cfg.InterfaceTokens, SceneSegment: cfg.SceneSegment, SubSegment: -1},
		Rule{Role: RoleSolid, Tokens: cfg.SolidTokens, SceneSegment: cfg.SceneSegment, SubSegment: -1},
		Rule{Role: RoleDebris, Tokens: cfg.DebrisTokens, SceneSegment: cfg.DebrisSceneSegment, SubSegment: cfg.DebrisSubSegment},
	)
}

// DefaultGrammar returns the grammar for the default vocabulary and layout.
func DefaultGrammar() *Grammar {
	g, err := GrammarFromConfig(config.Default().Scenes)
	if err != nil {
		panic(err)
	}
	return g
}

// Parse extracts the role, scene index, and sub index from path's base name.
// Names with an unrecognized role token return ErrUnknownRole; names that match
// a role but cannot be parsed return a *ParseFailure.
func (g *Grammar) Parse(path string) (MeshFileRef, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	segments := strings.Split(stem, "_")

	rule, ok := g.rules[segments[0]]
	if !ok {
		return MeshFileRef{}, fmt.Errorf("%s: %w", base, ErrUnknownRole)
	}

	if need := rule.minSegments(); len(segments) < need {
		return MeshFileRef{}, &ParseFailure{
			Path:   path,
			Role:   rule.Role,
			Err:    ErrMalformedName,
			Detail: fmt.Sprintf("expected at least %d segments, got %d", need, len(segments)),
		}
	}

	ref := MeshFileRef{Path: path, Role: rule.Role}
	scene, err := ParseIndex(segments[rule.SceneSegment])
	if err != nil {
		return MeshFileRef{}, &ParseFailure{Path: path, Role: rule.Role, Err: ErrInvalidIndex, Detail: "scene index " + strconv.Quote(segments[rule.SceneSegment])}
	}
	ref.Scene = scene

	if rule.SubSegment > 0 {
		sub, err := ParseIndex(segments[rule.SubSegment])
		if err != nil {
			return MeshFileRef{}, &ParseFailure{Path: path, Role: rule.Role, Err: ErrInvalidIndex, Detail: "sub index " + strconv.Quote(segments[rule.SubSegment])}
		}
		ref.Sub = sub
		ref.HasSub = true
	}
	return ref, nil
}

// ParseIndex parses a zero-padded decimal index. Leading zeros are stripped and
// an empty remainder parses as 0.
func ParseIndex(segment string) (int, error) {
	trimmed := strings.TrimLeft(segment, "0")
	if trimmed == "" {
		return 0, nil
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q: %w", segment, ErrInvalidIndex)
		}
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", segment, ErrInvalidIndex)
	}
	return n, nil
}
