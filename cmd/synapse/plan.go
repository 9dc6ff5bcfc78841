package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/synapse/compiler"
	"github.com/syssam/synapse/compiler/gen"
)

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Compile the inputs and print the plans as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), func(context.Context) error {
				res, err := a.compile()
				if err != nil {
					return err
				}
				return writePlan(cmd.OutOrStdout(), res)
			})
		},
	}
}

type planDoc struct {
	Entities []entityDoc   `yaml:"entities"`
	Tables   []tableDoc    `yaml:"tables,omitempty"`
	Services []*serviceDoc `yaml:"services,omitempty"`
	Domains  []domainDoc   `yaml:"domains,omitempty"`
	GraphQL  graphqlDoc    `yaml:"graphql"`
}

type entityDoc struct {
	Name        string   `yaml:"name"`
	Table       string   `yaml:"table"`
	Key         string   `yaml:"key"`
	ForeignKeys []string `yaml:"foreign_keys,omitempty"`
	Relations   []string `yaml:"relations,omitempty"`
}

// tableDoc is one table of the migration view.
type tableDoc struct {
	Name        string   `yaml:"name"`
	Columns     []string `yaml:"columns"`
	PrimaryKey  string   `yaml:"primary_key,omitempty"`
	Indexes     []string `yaml:"indexes,omitempty"`
	ForeignKeys []string `yaml:"foreign_keys,omitempty"`
}

type serviceDoc struct {
	Name       string            `yaml:"name"`
	Storage    string            `yaml:"storage,omitempty"`
	Operations map[string]string `yaml:"operations,omitempty"`
	Server     string            `yaml:"server,omitempty"`
	Handlers   map[string]string `yaml:"handlers,omitempty"`
}

type domainDoc struct {
	Name   string            `yaml:"name"`
	From   string            `yaml:"from"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

type graphqlDoc struct {
	Objects    []string            `yaml:"objects,omitempty"`
	Operations map[string][]string `yaml:"operations,omitempty"`
	Loaders    []string            `yaml:"loaders,omitempty"`
}

// planOf summarizes the plans of a compilation.
func planOf(res *compiler.Result) (*planDoc, error) {
	doc := &planDoc{}
	for _, ep := range res.Storage.Entities {
		ed := entityDoc{Name: ep.Entity.Ident(), Table: ep.Table}
		if ep.PrimaryKey != nil {
			ed.Key = ep.PrimaryKey.StorageName
		}
		for _, fk := range ep.ForeignKeys {
			ed.ForeignKeys = append(ed.ForeignKeys, fmt.Sprintf("%s: %s -> %s.%s", fk.Symbol, fk.Column.StorageName, fk.RefEntity.Table, fk.RefColumn.StorageName))
		}
		for _, r := range ep.Entity.Relations {
			ed.Relations = append(ed.Relations, r.String())
		}
		doc.Entities = append(doc.Entities, ed)
	}
	realm, err := res.Storage.Realm()
	if err != nil {
		return nil, err
	}
	doc.Tables = tablesOf(realm)
	services := make(map[*gen.Service]*serviceDoc)
	service := func(s *gen.Service) *serviceDoc {
		if sd, ok := services[s]; ok {
			return sd
		}
		sd := &serviceDoc{Name: s.Ident()}
		doc.Services = append(doc.Services, sd)
		services[s] = sd
		return sd
	}
	for _, sp := range res.Storage.Services {
		sd := service(sp.Service)
		sd.Storage = sp.Interface
		sd.Operations = make(map[string]string, len(sp.Operations))
		for _, op := range sp.Operations {
			sd.Operations[op.Name] = op.Strategy.Kind.String()
		}
	}
	for _, rp := range res.RPC.Services {
		sd := service(rp.Service)
		sd.Server = rp.Server
		sd.Handlers = make(map[string]string, len(rp.Methods))
		for _, m := range rp.Methods {
			steps := make([]string, len(m.Steps))
			for i, st := range m.Steps {
				steps[i] = st.String()
			}
			sd.Handlers[m.Name] = strings.Join(steps, " -> ")
		}
	}
	for _, p := range res.Validation {
		dd := domainDoc{Name: p.Ident(), From: p.Message.Ident(), Fields: make(map[string]string, len(p.Fields))}
		for _, fp := range p.Fields {
			rules := make([]string, len(fp.Rules))
			for i, r := range fp.Rules {
				rules[i] = r.Kind.String()
			}
			dd.Fields[fp.Name] = strings.Join(rules, ", ")
		}
		doc.Domains = append(doc.Domains, dd)
	}
	gq := res.GraphQL
	for _, o := range gq.Objects {
		doc.GraphQL.Objects = append(doc.GraphQL.Objects, o.Name)
	}
	for _, op := range gq.Operations {
		if doc.GraphQL.Operations == nil {
			doc.GraphQL.Operations = make(map[string][]string)
		}
		k := op.Kind.String()
		doc.GraphQL.Operations[k] = append(doc.GraphQL.Operations[k], fmt.Sprintf("%s: %s", op.Name, op.Type.String()))
	}
	for _, l := range gq.Loaders {
		doc.GraphQL.Loaders = append(doc.GraphQL.Loaders, l.Name)
	}
	return doc, nil
}

// tablesOf lists the tables of the migration view, qualified by schema.
func tablesOf(realm *atlas.Realm) []tableDoc {
	var docs []tableDoc
	for _, s := range realm.Schemas {
		for _, t := range s.Tables {
			td := tableDoc{Name: s.Name + "." + t.Name}
			for _, c := range t.Columns {
				col := c.Name + " " + typeName(c.Type.Type)
				if c.Type.Null {
					col += " null"
				}
				td.Columns = append(td.Columns, col)
			}
			if pk := t.PrimaryKey; pk != nil {
				td.PrimaryKey = pk.Name + ": " + partNames(pk.Parts)
			}
			for _, idx := range t.Indexes {
				kind := "index"
				if idx.Unique {
					kind = "unique"
				}
				td.Indexes = append(td.Indexes, fmt.Sprintf("%s: %s (%s)", idx.Name, kind, partNames(idx.Parts)))
			}
			for _, fk := range t.ForeignKeys {
				td.ForeignKeys = append(td.ForeignKeys, fmt.Sprintf("%s: %s -> %s.%s on delete %s",
					fk.Symbol, columnNames(fk.Columns), fk.RefTable.Name, columnNames(fk.RefColumns), fk.OnDelete))
			}
			docs = append(docs, td)
		}
	}
	return docs
}

func partNames(parts []*atlas.IndexPart) string {
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.C != nil {
			names = append(names, p.C.Name)
		}
	}
	return strings.Join(names, ", ")
}

func columnNames(cols []*atlas.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// typeName returns the type name of an atlas column type.
func typeName(t atlas.Type) string {
	switch t := t.(type) {
	case *atlas.BoolType:
		return t.T
	case *atlas.IntegerType:
		if t.Unsigned {
			return t.T + " unsigned"
		}
		return t.T
	case *atlas.FloatType:
		return t.T
	case *atlas.StringType:
		return t.T
	case *atlas.BinaryType:
		return t.T
	case *atlas.TimeType:
		return t.T
	case *atlas.JSONType:
		return t.T
	case *atlas.EnumType:
		return t.T + "(" + strings.Join(t.Values, ", ") + ")"
	case *atlas.UnsupportedType:
		return t.T
	}
	return fmt.Sprintf("%T", t)
}

func writePlan(w io.Writer, res *compiler.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	doc, err := planOf(res)
	if err != nil {
		return err
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	return enc.Close()
}
