package qualify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// VisibleSchema is the authoritative column catalog handed to the strict
// qualifier: catalog -> database -> table -> {column -> type}. Column order
// matters for star expansion, so the nested maps are decoded into ordered
// slices instead of Go maps.
type VisibleSchema struct {
	Catalogs []SchemaCatalog
}

// SchemaCatalog is one catalog of the visible schema.
type SchemaCatalog struct {
	Name      string
	Databases []SchemaDatabase
}

// SchemaDatabase is one database of a catalog.
type SchemaDatabase struct {
	Name   string
	Tables []SchemaTable
}

// SchemaTable is one table with its columns in declaration order.
type SchemaTable struct {
	Name    string
	Columns []SchemaColumn
}

// SchemaColumn is a column name plus its declared type.
type SchemaColumn struct {
	Name string
	Type string
}

// Lookup returns the table entry for (catalog, database, table),
// case-insensitively.
func (s *VisibleSchema) Lookup(catalog, database, table string) (*SchemaTable, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Catalogs {
		c := &s.Catalogs[i]
		if !strings.EqualFold(c.Name, catalog) {
			continue
		}
		for j := range c.Databases {
			d := &c.Databases[j]
			if !strings.EqualFold(d.Name, database) {
				continue
			}
			for k := range d.Tables {
				t := &d.Tables[k]
				if strings.EqualFold(t.Name, table) {
					return t, true
				}
			}
		}
	}
	return nil, false
}

// Empty reports whether the schema holds no catalogs.
func (s *VisibleSchema) Empty() bool {
	return s == nil || len(s.Catalogs) == 0
}

// UnmarshalJSON decodes the nested-map wire form with a token decoder so
// that column order is preserved.
func (s *VisibleSchema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		catName, err := readKey(dec)
		if err != nil {
			return err
		}
		cat := SchemaCatalog{Name: catName}
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		for dec.More() {
			dbName, err := readKey(dec)
			if err != nil {
				return err
			}
			db := SchemaDatabase{Name: dbName}
			if err := expectDelim(dec, '{'); err != nil {
				return err
			}
			for dec.More() {
				tblName, err := readKey(dec)
				if err != nil {
					return err
				}
				tbl := SchemaTable{Name: tblName}
				if err := expectDelim(dec, '{'); err != nil {
					return err
				}
				for dec.More() {
					colName, err := readKey(dec)
					if err != nil {
						return err
					}
					typeTok, err := dec.Token()
					if err != nil {
						return err
					}
					typeName, ok := typeTok.(string)
					if !ok {
						return fmt.Errorf("visible_schema: column %q: type must be a string", colName)
					}
					tbl.Columns = append(tbl.Columns, SchemaColumn{Name: colName, Type: typeName})
				}
				if err := expectDelim(dec, '}'); err != nil {
					return err
				}
				db.Tables = append(db.Tables, tbl)
			}
			if err := expectDelim(dec, '}'); err != nil {
				return err
			}
			cat.Databases = append(cat.Databases, db)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		s.Catalogs = append(s.Catalogs, cat)
	}
	return expectDelim(dec, '}')
}

// MarshalJSON re-emits the nested-map wire form in the stored order.
func (s VisibleSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range s.Catalogs {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(&buf, cat.Name)
		buf.WriteByte('{')
		for j, db := range cat.Databases {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, db.Name)
			buf.WriteByte('{')
			for k, tbl := range db.Tables {
				if k > 0 {
					buf.WriteByte(',')
				}
				writeKey(&buf, tbl.Name)
				buf.WriteByte('{')
				for l, col := range tbl.Columns {
					if l > 0 {
						buf.WriteByte(',')
					}
					writeKey(&buf, col.Name)
					v, err := json.Marshal(col.Type)
					if err != nil {
						return nil, err
					}
					buf.Write(v)
				}
				buf.WriteByte('}')
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func expectDelim(dec *json.Decoder, d json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != d {
		return fmt.Errorf("visible_schema: expected %q, got %v", d, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("visible_schema: expected object key, got %v", tok)
	}
	return key, nil
}

func writeKey(buf *bytes.Buffer, key string) {
	b, _ := json.Marshal(key)
	buf.Write(b)
	buf.WriteByte(':')
}
