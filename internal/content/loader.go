// Package content loads the YAML files that declare entries, rule trees and
// effect templates into an unpublished engine.Snapshot.
//
// A content directory holds any number of *.yaml or *.yml files, read in
// lexical order. Each file may carry three top-level mappings:
//
//	entries:
//	  cod:
//	    type: item
//	    groups: [fish]
//	    wait-time: 2~4
//	rules:
//	  ocean:
//	    requirements:
//	      - {type: tag, tag: ocean}
//	    weight:
//	      - {target: cod, modifier: "+10"}
//	    children:
//	      night: {...}
//	effects:
//	  rain:
//	    values: {wait-time-multiplier: 0.8}
//	    weight: [{group: fish, modifier: "*2"}]
//	    weight-forced: [{target: pearl, modifier: "+1"}]
//
// Every file's entries load before any file's rules, so rules and effects
// may reference entries declared in other files.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/lootweight/internal/game/condition"
	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/effect"
	"github.com/cory-johannsen/lootweight/internal/game/engine"
	"github.com/cory-johannsen/lootweight/internal/game/formula"
	"github.com/cory-johannsen/lootweight/internal/game/loot"
	"github.com/cory-johannsen/lootweight/internal/game/modifier"
	"github.com/cory-johannsen/lootweight/internal/game/rule"
	"github.com/cory-johannsen/lootweight/internal/scripting"
)

// Loader builds snapshots from content files.
type Loader struct {
	conditions *condition.Registry
	modifiers  *modifier.Registry
	formulas   *formula.Compiler
	logger     *zap.Logger
}

// NewLoader returns a Loader that resolves requirement, modifier and formula
// declarations through the given registries.
//
// Precondition: all arguments must be non-nil.
func NewLoader(conds *condition.Registry, mods *modifier.Registry, formulas *formula.Compiler, logger *zap.Logger) *Loader {
	return &Loader{conditions: conds, modifiers: mods, formulas: formulas, logger: logger}
}

// NewDefaultLoader returns a Loader over the builtin requirement and
// modifier types. Random formulas draw from src.
func NewDefaultLoader(scripts *scripting.Manager, src dice.Source, logger *zap.Logger) *Loader {
	return NewLoader(
		condition.DefaultRegistry(scripts),
		modifier.DefaultRegistry(scripts),
		formula.NewCompiler(src, scripts),
		logger,
	)
}

type fileDoc struct {
	Entries yaml.Node `yaml:"entries"`
	Rules   yaml.Node `yaml:"rules"`
	Effects yaml.Node `yaml:"effects"`
}

type parsedFile struct {
	path string
	doc  fileDoc
}

// LoadDir loads every YAML file in dir.
//
// Postcondition: returns an error only when dir cannot be read or a file is
// not valid YAML; item-level problems are skipped and listed in the Report.
func (l *Loader) LoadDir(dir string) (*engine.Snapshot, *Report, error) {
	paths, err := yamlFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	return l.LoadFiles(paths...)
}

// LoadFiles loads the given files in order.
func (l *Loader) LoadFiles(paths ...string) (*engine.Snapshot, *Report, error) {
	files := make([]parsedFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var doc fileDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("parsing content file %s: %w", path, err)
		}
		files = append(files, parsedFile{path: path, doc: doc})
	}

	b := &build{
		Loader:  l,
		catalog: loot.NewCatalog(),
		effects: effect.NewLibrary(),
		report:  &Report{Files: append([]string(nil), paths...)},
	}
	for _, f := range files {
		b.file = f.path
		b.entries(&f.doc.Entries)
	}
	var roots []*rule.Node
	seenRoots := map[string]bool{}
	for _, f := range files {
		b.file = f.path
		for _, n := range b.rules(&f.doc.Rules) {
			if seenRoots[n.Name] {
				b.warn("rules."+n.Name, errors.New("duplicate rule name"))
				continue
			}
			seenRoots[n.Name] = true
			roots = append(roots, n)
			b.report.Rules += n.Size()
		}
	}
	for _, f := range files {
		b.file = f.path
		b.templates(&f.doc.Effects)
	}

	b.report.Entries = b.catalog.Len()
	b.report.Effects = b.effects.Len()
	l.logger.Info("content loaded",
		zap.Int("files", len(paths)),
		zap.Int("entries", b.report.Entries),
		zap.Int("rule_nodes", b.report.Rules),
		zap.Int("effects", b.report.Effects),
		zap.Int("issues", len(b.report.Issues)),
	)
	return engine.NewSnapshot(b.catalog, rule.NewForest(roots...), b.effects), b.report, nil
}

// build carries the state of one LoadFiles call.
type build struct {
	*Loader
	file    string
	catalog *loot.Catalog
	effects *effect.Library
	report  *Report
}

func (b *build) warn(path string, err error) {
	b.report.Issues = append(b.report.Issues, Issue{File: b.file, Path: path, Err: err})
	b.logger.Warn("content issue",
		zap.String("file", b.file),
		zap.String("path", path),
		zap.Error(err),
	)
}

// pairs returns the key/value node pairs of a mapping. An absent section
// yields nothing; any other non-mapping is reported.
func (b *build) pairs(path string, n *yaml.Node) [][2]*yaml.Node {
	if n == nil || n.Kind == 0 || n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		b.warn(path, fmt.Errorf("line %d: expected a mapping", n.Line))
		return nil
	}
	out := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return out
}

type entryDoc struct {
	Type               string         `yaml:"type"`
	Nick               string         `yaml:"nick"`
	StatsKey           string         `yaml:"stats-key"`
	Groups             []string       `yaml:"groups"`
	ShowInFinder       *bool          `yaml:"show-in-finder"`
	DisableStats       bool           `yaml:"disable-stats"`
	PreventGrabbing    bool           `yaml:"prevent-grabbing"`
	ToInventoryChance  any            `yaml:"to-inventory-chance"`
	WaitTime           any            `yaml:"wait-time"`
	WaitTimeMultiplier any            `yaml:"wait-time-multiplier"`
	Data               map[string]any `yaml:"data"`
}

func (b *build) entries(n *yaml.Node) {
	for _, kv := range b.pairs("entries", n) {
		id := kv[0].Value
		path := "entries." + id
		e, err := b.entry(id, kv[1])
		if err != nil {
			b.warn(path, err)
			continue
		}
		if !b.catalog.Register(e) {
			b.warn(path, errors.New("duplicate entry id"))
		}
	}
}

func (b *build) entry(id string, n *yaml.Node) (*loot.Entry, error) {
	var doc entryDoc
	if err := n.Decode(&doc); err != nil {
		return nil, err
	}
	typ, err := loot.ParseType(doc.Type)
	if err != nil {
		return nil, err
	}
	eb := loot.NewBuilder(id).
		Type(typ).
		Nickname(doc.Nick).
		StatsKey(doc.StatsKey).
		Groups(doc.Groups...).
		DisableStats(doc.DisableStats).
		PreventGrabbing(doc.PreventGrabbing)
	if doc.ShowInFinder != nil {
		eb.ShowInFinder(*doc.ShowInFinder)
	}
	adder, err := b.optionalFormula("wait-time", doc.WaitTime)
	if err != nil {
		return nil, err
	}
	mult, err := b.optionalFormula("wait-time-multiplier", doc.WaitTimeMultiplier)
	if err != nil {
		return nil, err
	}
	eb.WaitTime(adder, mult)
	chance, err := b.optionalFormula("to-inventory-chance", doc.ToInventoryChance)
	if err != nil {
		return nil, err
	}
	eb.ToInventoryChance(chance)
	keys := make([]string, 0, len(doc.Data))
	for k := range doc.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, err := b.formulas.CompileValue(doc.Data[k])
		if err != nil {
			return nil, fmt.Errorf("data %q: %w", k, err)
		}
		eb.CustomData(k, f)
	}
	return eb.Build()
}

func (b *build) optionalFormula(key string, v any) (formula.Formula, error) {
	if v == nil {
		return nil, nil
	}
	f, err := b.formulas.CompileValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

type ruleDoc struct {
	Requirements []map[string]any `yaml:"requirements"`
	Weight       []opDoc          `yaml:"weight"`
	Children     yaml.Node        `yaml:"children"`
}

type opDoc struct {
	Target   string    `yaml:"target"`
	Group    string    `yaml:"group"`
	Type     string    `yaml:"type"`
	Modifier yaml.Node `yaml:"modifier"`
}

func (b *build) rules(n *yaml.Node) []*rule.Node {
	var out []*rule.Node
	for _, kv := range b.pairs("rules", n) {
		if node, ok := b.rule("rules", kv[0].Value, kv[1]); ok {
			out = append(out, node)
		}
	}
	return out
}

// rule decodes one node. A malformed node is reported and dropped with its
// whole subtree; a malformed child drops only that child.
func (b *build) rule(parent, name string, n *yaml.Node) (*rule.Node, bool) {
	path := parent + "." + name
	if name == "" {
		b.warn(path, errors.New("rule name must not be empty"))
		return nil, false
	}
	var doc ruleDoc
	if err := n.Decode(&doc); err != nil {
		b.warn(path, err)
		return nil, false
	}
	reqs, err := b.requirements(doc.Requirements)
	if err != nil {
		b.warn(path, err)
		return nil, false
	}
	ops, err := b.operations(path, doc.Weight)
	if err != nil {
		b.warn(path, err)
		return nil, false
	}
	node := &rule.Node{Name: name, Requirements: reqs, Operations: ops}
	for _, kv := range b.pairs(path+".children", &doc.Children) {
		child, ok := b.rule(path, kv[0].Value, kv[1])
		if !ok {
			continue
		}
		if _, dup := node.Child(child.Name); dup {
			b.warn(path+"."+child.Name, errors.New("duplicate child rule"))
			continue
		}
		node.Children = append(node.Children, child)
	}
	return node, true
}

func (b *build) requirements(docs []map[string]any) ([]condition.Requirement, error) {
	out := make([]condition.Requirement, 0, len(docs))
	for i, d := range docs {
		typeName, _ := d["type"].(string)
		if typeName == "" {
			return nil, fmt.Errorf("requirement %d: missing type", i)
		}
		params := make(condition.Params, len(d))
		for k, v := range d {
			if k != "type" {
				params[k] = v
			}
		}
		r, err := b.conditions.Build(typeName, params)
		if err != nil {
			return nil, fmt.Errorf("requirement %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// operations decodes weight declarations. An unknown entry id is an error
// because a weight for it could never resolve to an entry; an unknown group
// is only reported, since it behaves as an empty group.
func (b *build) operations(path string, docs []opDoc) ([]modifier.Operation, error) {
	out := make([]modifier.Operation, 0, len(docs))
	for i, d := range docs {
		var target modifier.Target
		switch {
		case d.Target != "" && d.Group != "":
			return nil, fmt.Errorf("weight %d: target and group are exclusive", i)
		case d.Target != "":
			if _, ok := b.catalog.Get(d.Target); !ok {
				return nil, fmt.Errorf("weight %d: unknown entry %q", i, d.Target)
			}
			target = modifier.EntryTarget(d.Target)
		case d.Group != "":
			if !b.catalog.HasGroup(d.Group) {
				b.warn(path, fmt.Errorf("weight %d: unknown group %q", i, d.Group))
			}
			target = modifier.GroupTarget(d.Group)
		default:
			return nil, fmt.Errorf("weight %d: missing target or group", i)
		}
		if d.Modifier.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("weight %d: modifier must be a scalar", i)
		}
		fn, err := b.modifiers.Build(d.Type, d.Modifier.Value)
		if err != nil {
			return nil, fmt.Errorf("weight %d: %w", i, err)
		}
		out = append(out, modifier.Operation{Target: target, Fn: fn})
	}
	return out, nil
}

type templateDoc struct {
	Requirements []map[string]any `yaml:"requirements"`
	Values       map[string]any   `yaml:"values"`
	Weight       []opDoc          `yaml:"weight"`
	WeightForced []opDoc          `yaml:"weight-forced"`
}

func (b *build) templates(n *yaml.Node) {
	for _, kv := range b.pairs("effects", n) {
		id := kv[0].Value
		path := "effects." + id
		t, err := b.template(path, id, kv[1])
		if err == nil {
			err = b.effects.Register(t)
		}
		if err != nil {
			b.warn(path, err)
		}
	}
}

func (b *build) template(path, id string, n *yaml.Node) (*effect.Template, error) {
	var doc templateDoc
	if err := n.Decode(&doc); err != nil {
		return nil, err
	}
	reqs, err := b.requirements(doc.Requirements)
	if err != nil {
		return nil, err
	}
	values := make(map[effect.Field]formula.Formula, len(doc.Values))
	for k, v := range doc.Values {
		field, err := effect.ParseField(k)
		if err != nil {
			return nil, err
		}
		f, err := b.formulas.CompileValue(v)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", k, err)
		}
		values[field] = f
	}
	gated, err := b.operations(path+".weight", doc.Weight)
	if err != nil {
		return nil, err
	}
	forced, err := b.operations(path+".weight-forced", doc.WeightForced)
	if err != nil {
		return nil, err
	}
	return &effect.Template{ID: id, Requirements: reqs, Values: values, Gated: gated, Forced: forced}, nil
}

// yamlFiles returns the YAML files directly inside dir in lexical order.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsContentFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsContentFile reports whether name has a YAML extension.
func IsContentFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
