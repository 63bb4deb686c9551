package ruleset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

type ruleDoc struct {
	Rule     `yaml:",inline"`
	Enabled  *bool `yaml:"enabled"`
	Priority *int  `yaml:"priority"`
}

type rulesFile struct {
	Rules []ruleDoc `yaml:"rules"`
}

type conditionsFile struct {
	Conditions map[string]Definition `yaml:"conditions"`
}

type actionsFile struct {
	Actions map[string]Definition `yaml:"actions"`
}

// Loader reads and merges definitions from an ordered list of directories.
type Loader struct {
	sources []string
	logger  *slog.Logger
}

// NewLoader creates a loader over sources, lowest precedence first.
func NewLoader(logger *slog.Logger, sources ...string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		sources: sources,
		logger:  logger,
	}
}

// Sources returns the configured source directories.
func (l *Loader) Sources() []string {
	return l.sources
}

// Load reads every source and merges it into a fresh Config. It never fails:
// missing sources are skipped and unparsable files contribute nothing.
func (l *Loader) Load() *Config {
	m := newMerger()

	for _, source := range l.sources {
		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			continue
		}
		m.cfg.Sources = append(m.cfg.Sources, source)

		for _, rule := range l.loadRules(source) {
			m.addRule(rule, source)
		}

		var conditions conditionsFile
		if l.readFile(filepath.Join(source, conditionsFileName), &conditions) {
			for _, id := range slices.Sorted(maps.Keys(conditions.Conditions)) {
				m.addDefinition(KindCondition, m.cfg.Conditions, id, conditions.Conditions[id], source)
			}
		}

		var actions actionsFile
		if l.readFile(filepath.Join(source, actionsFileName), &actions) {
			for _, id := range slices.Sorted(maps.Keys(actions.Actions)) {
				m.addDefinition(KindAction, m.cfg.Actions, id, actions.Actions[id], source)
			}
		}

		scriptsDir := filepath.Join(source, scriptsDirName)
		if info, err := os.Stat(scriptsDir); err == nil && info.IsDir() {
			m.cfg.ScriptsDir = scriptsDir
		}
	}

	for _, conflict := range m.cfg.Conflicts {
		l.logger.Debug("definition overridden by later source",
			"kind", conflict.Kind,
			"id", conflict.ID,
			"source", conflict.Source,
			"previous", conflict.Previous,
		)
	}

	return m.finish()
}

// loadRules reads the rules file of one source, falling back to the alias
// file when the primary is missing or defines no rules.
func (l *Loader) loadRules(source string) []*Rule {
	var file rulesFile
	if !l.readFile(filepath.Join(source, rulesFileName), &file) || len(file.Rules) == 0 {
		file = rulesFile{}
		l.readFile(filepath.Join(source, rulesAliasFileName), &file)
	}

	rules := make([]*Rule, 0, len(file.Rules))
	for i, doc := range file.Rules {
		if doc.ID == "" {
			l.logger.Warn("skipping rule without id", "source", source, "index", i)
			continue
		}

		rule := doc.Rule
		rule.Enabled = doc.Enabled == nil || *doc.Enabled
		rule.Priority = DefaultPriority
		if doc.Priority != nil {
			rule.Priority = *doc.Priority
		}
		rule.Source = source
		rules = append(rules, &rule)
	}

	return rules
}

// readFile decodes a YAML file into out. It reports false when the file is
// missing, empty or unparsable; parse failures are logged.
func (l *Loader) readFile(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("failed to read definition file", "path", path, "error", err)
		}
		return false
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		l.logger.Warn("skipping definition file", "path", path, "error", fmt.Errorf("%w: %v", ErrParse, err))
		return false
	}

	return len(data) > 0
}

// merger applies sources in order; later definitions replace earlier ones
// with the same identifier while rules keep their first position.
type merger struct {
	cfg          *Config
	ruleOrder    []string
	rules        map[string]*Rule
	definitionBy map[Kind]map[string]string
}

func newMerger() *merger {
	return &merger{
		cfg:   NewConfig(),
		rules: map[string]*Rule{},
		definitionBy: map[Kind]map[string]string{
			KindCondition: {},
			KindAction:    {},
		},
	}
}

func (m *merger) addRule(rule *Rule, source string) {
	previous, ok := m.rules[rule.ID]
	if ok {
		m.cfg.Conflicts = append(m.cfg.Conflicts, Conflict{
			Kind:     KindRule,
			ID:       rule.ID,
			Source:   source,
			Previous: previous.Source,
		})
	} else {
		m.ruleOrder = append(m.ruleOrder, rule.ID)
	}
	m.rules[rule.ID] = rule
}

func (m *merger) addDefinition(kind Kind, table map[string]Definition, id string, def Definition, source string) {
	if previous, ok := m.definitionBy[kind][id]; ok {
		m.cfg.Conflicts = append(m.cfg.Conflicts, Conflict{
			Kind:     kind,
			ID:       id,
			Source:   source,
			Previous: previous,
		})
	}
	if def == nil {
		def = Definition{}
	}
	table[id] = def
	m.definitionBy[kind][id] = source
}

func (m *merger) finish() *Config {
	for _, id := range m.ruleOrder {
		if rule := m.rules[id]; rule.Enabled {
			m.cfg.Rules = append(m.cfg.Rules, rule)
		}
	}

	sort.SliceStable(m.cfg.Rules, func(i, j int) bool {
		return m.cfg.Rules[i].Priority > m.cfg.Rules[j].Priority
	})

	return m.cfg
}
