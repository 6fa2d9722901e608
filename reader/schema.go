package reader

import (
	"errors"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

var ErrSchema = errors.New("not a ballot file")

// SchemaInfo describes one leaf column of a parquet file
type SchemaInfo struct {
	Name         string `json:"name"`
	PhysicalType string `json:"physical_type"`
	Repeated     bool   `json:"repeated"`
}

// ballotColumns are the top-level fields a ballot file must carry, each
// described by its single leaf column
var ballotColumns = []SchemaInfo{
	{Name: "id", PhysicalType: "INT64"},
	{Name: "atl", PhysicalType: "INT32", Repeated: true},
	{Name: "btl", PhysicalType: "INT32", Repeated: true},
}

// CheckSchema reports whether a parquet schema can be read as ballot
// records: an INT64 id and two preference lists of INT32 entity numbers.
// Other columns are ignored.
func CheckSchema(schema *parquet.Schema) error {
	leaves := make(map[string]SchemaInfo)
	for _, field := range schema.Fields() {
		if infos := extractFieldInfo(field, "", false); len(infos) == 1 {
			leaves[field.Name()] = infos[0]
		}
	}

	for _, want := range ballotColumns {
		got, ok := leaves[want.Name]
		if !ok {
			return fmt.Errorf("%w: missing column %s", ErrSchema, want.Name)
		}
		if got.PhysicalType != want.PhysicalType || got.Repeated != want.Repeated {
			return fmt.Errorf("%w: column %s is %s, want %s", ErrSchema, got.Name, describe(got), describe(want))
		}
	}
	return nil
}

func describe(info SchemaInfo) string {
	if info.Repeated {
		return "repeated " + info.PhysicalType
	}
	return info.PhysicalType
}

// extractFieldInfo recursively flattens a field to its leaf columns, using
// dot notation for nested names and tracking whether any parent repeats
func extractFieldInfo(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []SchemaInfo
		for _, child := range children {
			infos = append(infos, extractFieldInfo(child, name, repeated)...)
		}
		return infos
	}

	return []SchemaInfo{{
		Name:         name,
		PhysicalType: physicalType(field),
		Repeated:     repeated,
	}}
}

// physicalType returns the physical type name of a leaf field
func physicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}

	switch field.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}
