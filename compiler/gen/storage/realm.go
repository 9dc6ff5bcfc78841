package storage

import (
	"fmt"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/options"
)

// Realm returns the tables of the plan as an atlas realm with one schema per
// package. The realm describes the expected database state for inspection
// and diffing; it is never applied.
func (p *Plan) Realm() (*schema.Realm, error) {
	var (
		realm   = &schema.Realm{}
		schemas = make(map[string]*schema.Schema)
		tables  = make(map[*gen.Entity]*schema.Table)
		columns = make(map[*gen.Column]*schema.Column)
	)
	for _, ep := range p.Entities {
		e := ep.Entity
		s, ok := schemas[e.Package]
		if !ok {
			s = &schema.Schema{Name: e.Package, Realm: realm}
			schemas[e.Package] = s
			realm.Schemas = append(realm.Schemas, s)
		}
		t := &schema.Table{Name: ep.Table, Schema: s}
		for _, c := range ep.Columns {
			typ, err := columnType(c)
			if err != nil {
				return nil, fmt.Errorf("storage: table %q: %w", ep.Table, err)
			}
			col := &schema.Column{Name: c.StorageName, Type: &schema.ColumnType{Type: typ, Raw: c.ColumnType, Null: c.Nullable()}}
			switch {
			case c.DefaultExpr != "":
				col.Default = &schema.RawExpr{X: c.DefaultExpr}
			case c.Default != "":
				col.Default = &schema.Literal{V: c.Default}
			}
			t.Columns = append(t.Columns, col)
			columns[c] = col
			if c.Unique && !c.PrimaryKey {
				t.Indexes = append(t.Indexes, &schema.Index{
					Name:   fmt.Sprintf("%s_%s_key", ep.Table, c.StorageName),
					Unique: true,
					Table:  t,
					Parts:  []*schema.IndexPart{{C: col}},
				})
			}
		}
		if pk := ep.PrimaryKey; pk != nil {
			t.PrimaryKey = &schema.Index{Name: ep.Table + "_pkey", Unique: true, Table: t, Parts: []*schema.IndexPart{{C: columns[pk]}}}
		}
		s.Tables = append(s.Tables, t)
		tables[e] = t
	}
	for _, ep := range p.Entities {
		t := tables[ep.Entity]
		for _, fk := range ep.ForeignKeys {
			ref, ok := tables[fk.RefEntity]
			if !ok {
				return nil, fmt.Errorf("storage: foreign key %q references %s, which has no table", fk.Symbol, fk.RefEntity.Ident())
			}
			t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
				Symbol:     fk.Symbol,
				Table:      t,
				Columns:    []*schema.Column{columns[fk.Column]},
				RefTable:   ref,
				RefColumns: []*schema.Column{columns[fk.RefColumn]},
				OnUpdate:   schema.NoAction,
				OnDelete:   onDelete(fk),
			})
		}
	}
	return realm, nil
}

// onDelete nulls optional keys and cascades required ones.
func onDelete(fk *ForeignKey) schema.ReferenceOption {
	if fk.Column.Nullable() {
		return schema.SetNull
	}
	return schema.Cascade
}

// columnType maps a column to a generic atlas type. An explicit column_type
// replaces the type name.
func columnType(c *gen.Column) (schema.Type, error) {
	named := func(def string) string {
		if c.ColumnType != "" {
			return c.ColumnType
		}
		return def
	}
	if c.Repeated() || c.Embed {
		return &schema.JSONType{T: named("json")}, nil
	}
	switch c.Type {
	case gen.TypeBool:
		return &schema.BoolType{T: named("boolean")}, nil
	case gen.TypeInt32:
		return &schema.IntegerType{T: named("integer")}, nil
	case gen.TypeInt64:
		return &schema.IntegerType{T: named("bigint")}, nil
	case gen.TypeUint32:
		return &schema.IntegerType{T: named("integer"), Unsigned: true}, nil
	case gen.TypeUint64:
		return &schema.IntegerType{T: named("bigint"), Unsigned: true}, nil
	case gen.TypeFloat32:
		return &schema.FloatType{T: named("real")}, nil
	case gen.TypeFloat64:
		return &schema.FloatType{T: named("double precision")}, nil
	case gen.TypeString:
		return &schema.StringType{T: named("text")}, nil
	case gen.TypeBytes:
		return &schema.BinaryType{T: named("bytea")}, nil
	case gen.TypeTime:
		return &schema.TimeType{T: named("timestamp")}, nil
	case gen.TypeEnum:
		if c.Enum == nil {
			break
		}
		if c.Enum.Storage == options.EnumAsInteger {
			return &schema.IntegerType{T: named("integer")}, nil
		}
		var values []string
		for _, v := range c.Enum.Values {
			if !v.Skip {
				values = append(values, v.StringValue)
			}
		}
		return &schema.EnumType{T: named("enum"), Values: values}, nil
	}
	if c.ColumnType != "" {
		return &schema.UnsupportedType{T: c.ColumnType}, nil
	}
	return nil, fmt.Errorf("column %q: no storage type for %s", c.StorageName, c.Type)
}
