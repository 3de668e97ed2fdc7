package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coregx/updatebulk"
)

// dsnEnv supplies the DSN when neither the flag nor the job file sets one.
const dsnEnv = "UPDATEBULK_DSN"

// rawTag marks a YAML scalar as a raw SQL value: !raw "lower('X')".
const rawTag = "!raw"

// Job is a bulk update described in a YAML file.
//
//	driver: postgres
//	model:
//	  table: books
//	  primary_key: [id]
//	  columns:
//	    - {name: id, type: integer}
//	    - {name: qty, type: integer}
//	formulas: {qty: add}
//	rows:
//	  - {where: 1, set: {qty: 5}}
//	  - {where: {id: 2}, set: {qty: !raw "abs(-2)"}}
type Job struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Dialect overrides the dialect picked from Driver.
	Dialect       string            `yaml:"dialect"`
	Model         updatebulk.Model  `yaml:"model"`
	Timestamps    string            `yaml:"timestamps"`
	Formulas      map[string]string `yaml:"formulas"`
	RowSourceName string            `yaml:"row_source_name"`
	// StrictRaw rejects raw values containing subqueries.
	StrictRaw bool     `yaml:"strict_raw"`
	Rows      []JobRow `yaml:"rows"`
}

// JobRow is one row of a job.
type JobRow struct {
	Where Where            `yaml:"where"`
	Set   map[string]Value `yaml:"set"`
}

// Where holds either a column mapping or a primary key shorthand.
type Where struct {
	v interface{}
}

// UnmarshalYAML decodes mappings as conditions and anything else as a key.
func (w *Where) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		var key interface{}
		if err := n.Decode(&key); err != nil {
			return err
		}
		w.v = key
		return nil
	}
	var m map[string]Value
	if err := n.Decode(&m); err != nil {
		return err
	}
	conds := make(updatebulk.Conditions, len(m))
	for k, v := range m {
		conds[k] = v.v
	}
	w.v = conds
	return nil
}

// Value is a plain YAML value or a !raw SQL fragment.
type Value struct {
	v interface{}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	if n.Tag == rawTag {
		if n.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: %s expects a string", n.Line, rawTag)
		}
		v.v = updatebulk.RawSQL(n.Value)
		return nil
	}
	return n.Decode(&v.v)
}

// LoadJob reads and validates a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJob(data)
}

// ParseJob decodes and validates a job.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if job.DSN == "" {
		job.DSN = os.Getenv(dsnEnv)
	}
	if job.Driver == "" {
		return nil, errors.New("job: driver is required")
	}
	if err := job.Model.Validate(); err != nil {
		return nil, fmt.Errorf("job: %w", err)
	}
	return &job, nil
}

// Batch returns the rows as a Pairs batch.
func (j *Job) Batch() updatebulk.Pairs {
	pairs := make(updatebulk.Pairs, len(j.Rows))
	for i, r := range j.Rows {
		set := make(updatebulk.Assignments, len(r.Set))
		for k, v := range r.Set {
			set[k] = v.v
		}
		pairs[i] = updatebulk.Pair{Conditions: r.Where.v, Assignments: set}
	}
	return pairs
}

// CompileOptions returns the per-statement options of the job.
func (j *Job) CompileOptions() ([]updatebulk.CompileOption, error) {
	mode, err := updatebulk.ParseTimestampMode(j.Timestamps)
	if err != nil {
		return nil, err
	}
	opts := []updatebulk.CompileOption{updatebulk.WithTimestamps(mode)}
	for column, name := range j.Formulas {
		opts = append(opts, updatebulk.WithFormula(column, name))
	}
	if j.RowSourceName != "" {
		opts = append(opts, updatebulk.WithRowSourceName(j.RowSourceName))
	}
	return opts, nil
}
