package sqlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/community-ingest/internal/model"
)

// Insert is a validated INSERT for one entity. Values are normalized: nil for
// SQL NULL, string, float64, bool or []string.
type Insert struct {
	Table               string
	Columns             []string
	Values              []any
	OnConflictDoNothing bool
}

// ID returns the value of the id column.
func (in Insert) ID() string {
	if len(in.Values) == 0 {
		return ""
	}
	s, _ := in.Values[0].(string)
	return s
}

// Build validates ent against its table declaration and returns the insert.
// A NOT NULL column with no value is an error.
func Build(ent model.Entity, onConflictDoNothing bool) (Insert, error) {
	t, err := TableFor(ent.Kind())
	if err != nil {
		return Insert{}, err
	}
	raw := t.values(ent)
	if len(raw) != len(t.Columns) {
		return Insert{}, eris.Errorf("sqlgen: %s: %d values for %d columns", t.Name, len(raw), len(t.Columns))
	}

	in := Insert{
		Table:               t.Name,
		Columns:             t.ColumnNames(),
		Values:              make([]any, len(raw)),
		OnConflictDoNothing: onConflictDoNothing,
	}
	var missing []string
	for i, col := range t.Columns {
		v := normalize(raw[i], col.Type)
		if v == nil && col.NotNull {
			missing = append(missing, col.Name)
		}
		in.Values[i] = v
	}
	if len(missing) > 0 {
		return Insert{}, eris.Errorf("sqlgen: %s %q: NOT NULL columns without value: %s",
			t.Name, ent.Base().ID, strings.Join(missing, ", "))
	}
	return in, nil
}

// normalize maps Go field values onto nil, string, float64, bool or []string.
// Blank strings become NULL; arrays are never NULL.
func normalize(v any, typ ColumnType) any {
	switch x := v.(type) {
	case nil:
		if typ == TypeTextArray {
			return []string{}
		}
		return nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return x
	case *float64:
		if x == nil {
			return nil
		}
		return finite(*x)
	case float64:
		return finite(x)
	case bool:
		return x
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return fmt.Sprint(v)
}

// finite maps NaN and infinities to NULL.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func (in Insert) head() string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier{in.Table}.Sanitize())
	b.WriteString(" (")
	for i, c := range in.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c}.Sanitize())
	}
	b.WriteString(") VALUES (")
	return b.String()
}

func (in Insert) tail() string {
	if in.OnConflictDoNothing {
		return ") ON CONFLICT (" + pgx.Identifier{"id"}.Sanitize() + ") DO NOTHING"
	}
	return ")"
}

// Literal renders the insert with inline values and a trailing semicolon.
func (in Insert) Literal() string {
	vals := make([]string, len(in.Values))
	for i, v := range in.Values {
		vals[i] = Literal(v)
	}
	return in.head() + strings.Join(vals, ", ") + in.tail() + ";"
}

// Parameterized renders the insert with $n placeholders and returns the
// matching arguments.
func (in Insert) Parameterized() (string, []any) {
	ph := make([]string, len(in.Values))
	args := make([]any, len(in.Values))
	for i, v := range in.Values {
		ph[i] = "$" + strconv.Itoa(i+1)
		args[i] = v
	}
	return in.head() + strings.Join(ph, ", ") + in.tail(), args
}

// Literal renders one normalized value as a SQL literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return Quote(x)
	case float64:
		if finite(x) == nil {
			return "NULL"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case []string:
		if len(x) == 0 {
			return "ARRAY[]::TEXT[]"
		}
		items := make([]string, len(x))
		for i, s := range x {
			items[i] = Quote(s)
		}
		return "ARRAY[" + strings.Join(items, ", ") + "]"
	}
	return Quote(fmt.Sprint(v))
}

// Quote returns s as a single-quoted SQL string with embedded quotes doubled.
// NUL bytes, which Postgres text cannot hold, are removed.
func Quote(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
