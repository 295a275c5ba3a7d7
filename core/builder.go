// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the query builder: construction of parameterized DDL and
// DML statements from entity metadata. All identifiers are quoted and all
// values are bound as @pN parameters.
package core

import (
	"fmt"
	"strings"
)

// BuildCreateTable produces the CREATE TABLE statement for the schema,
// with column definitions in declaration order.
func BuildCreateTable(s *SchemaCore) Statement {
	definitionList := []string{}
	for _, field := range s.MappedColumns() {
		definitionList = append(definitionList, s.ColumnDefinition(field))
	}
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s);", s.Table, strings.Join(definitionList, ", "))
	return NewStatement(sql, nil)
}

// BuildInsert produces the INSERT statement for one entity.
//
// An auto-increment primary key is omitted from the column and value lists
// and appended as a RETURNING clause so the generated key can be read back.
func BuildInsert(s *SchemaCore, entity any) (Statement, error) {
	primaryKey, err := s.PrimaryKey()
	if err != nil {
		return Statement{}, err
	}

	columnNameList := []string{}
	placeholderList := []string{}
	params := map[string]any{}

	for _, field := range s.MappedColumns() {
		if field.IsAutoIncrement && field.IsPrimaryKey {
			continue
		}
		name := fmt.Sprintf("p%d", len(placeholderList))
		columnNameList = append(columnNameList, fmt.Sprintf("%q", field.DatabaseColumnName))
		placeholderList = append(placeholderList, "@"+name)
		params[name] = columnValue(entity, field)
	}

	sql := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		s.Table, strings.Join(columnNameList, ", "), strings.Join(placeholderList, ", "))
	if primaryKey.IsAutoIncrement {
		sql += fmt.Sprintf(" RETURNING %q;", primaryKey.DatabaseColumnName)
	} else {
		sql += ";"
	}
	return NewStatement(sql, params), nil
}

// BuildSelectAll produces the SELECT statement over all rows, with columns
// in declaration order.
func BuildSelectAll(s *SchemaCore) Statement {
	sql := fmt.Sprintf("SELECT %s FROM %q;", quotedColumnList(s), s.Table)
	return NewStatement(sql, nil)
}

// BuildSelectByID produces the SELECT statement for a single row by
// primary key.
func BuildSelectByID(s *SchemaCore, id any) (Statement, error) {
	primaryKey, err := s.PrimaryKey()
	if err != nil {
		return Statement{}, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %q WHERE %q = @p0;",
		quotedColumnList(s), s.Table, primaryKey.DatabaseColumnName)
	return NewStatement(sql, map[string]any{"p0": ToDB(id)}), nil
}

// BuildSelectWhere produces a SELECT statement with an optional raw WHERE
// fragment and an optional ORDER BY clause.
//
// The fragment supplies its own @pN placeholders; its parameter map is
// carried on the returned statement unchanged.
func BuildSelectWhere(s *SchemaCore, where *Where) Statement {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %q", quotedColumnList(s), s.Table)
	writeWhereSuffix(&b, where)
	return NewStatement(b.String(), whereParams(where))
}

// BuildCount produces the COUNT statement with an optional raw WHERE fragment.
func BuildCount(s *SchemaCore, where *Where) Statement {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(*) FROM %q", s.Table)
	if where != nil && where.Fragment != "" {
		b.WriteString(" WHERE " + where.Fragment)
	}
	b.WriteString(";")
	return NewStatement(b.String(), whereParams(where))
}

// BuildUpdate produces the UPDATE statement for one entity.
//
// The primary key is excluded from the SET list and bound to the reserved
// @pId placeholder in the WHERE clause.
func BuildUpdate(s *SchemaCore, entity any) (Statement, error) {
	primaryKey, err := s.PrimaryKey()
	if err != nil {
		return Statement{}, err
	}

	setPartList := []string{}
	params := map[string]any{}

	for _, field := range s.MappedColumns() {
		if field.IsPrimaryKey {
			continue
		}
		name := fmt.Sprintf("p%d", len(setPartList))
		setPartList = append(setPartList, fmt.Sprintf("%q = @%s", field.DatabaseColumnName, name))
		params[name] = columnValue(entity, field)
	}
	params["pId"] = columnValue(entity, primaryKey)

	sql := fmt.Sprintf("UPDATE %q SET %s WHERE %q = @pId;",
		s.Table, strings.Join(setPartList, ", "), primaryKey.DatabaseColumnName)
	return NewStatement(sql, params), nil
}

// BuildDeleteByID produces the DELETE statement for a single row by
// primary key.
func BuildDeleteByID(s *SchemaCore, id any) (Statement, error) {
	primaryKey, err := s.PrimaryKey()
	if err != nil {
		return Statement{}, err
	}
	sql := fmt.Sprintf("DELETE FROM %q WHERE %q = @p0;", s.Table, primaryKey.DatabaseColumnName)
	return NewStatement(sql, map[string]any{"p0": ToDB(id)}), nil
}

// BuildDelete produces the DELETE statement for one entity, keyed by the
// entity's current primary-key value.
func BuildDelete(s *SchemaCore, entity any) (Statement, error) {
	primaryKey, err := s.PrimaryKey()
	if err != nil {
		return Statement{}, err
	}
	return BuildDeleteByID(s, columnValue(entity, primaryKey))
}

// BuildDropTable produces the DROP TABLE statement for the schema.
func BuildDropTable(s *SchemaCore) Statement {
	return NewStatement(fmt.Sprintf("DROP TABLE IF EXISTS %q CASCADE;", s.Table), nil)
}

// quotedColumnList renders the mapped columns as a quoted, comma-separated
// list in declaration order.
func quotedColumnList(s *SchemaCore) string {
	columnNameList := []string{}
	for _, field := range s.MappedColumns() {
		columnNameList = append(columnNameList, fmt.Sprintf("%q", field.DatabaseColumnName))
	}
	return strings.Join(columnNameList, ", ")
}

// writeWhereSuffix appends the WHERE / ORDER BY suffix of a SELECT statement.
func writeWhereSuffix(b *strings.Builder, where *Where) {
	if where != nil && where.Fragment != "" {
		b.WriteString(" WHERE " + where.Fragment)
	}
	if where != nil && where.OrderBy != "" {
		direction := "ASC"
		if where.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(b, " ORDER BY %q %s", where.OrderBy, direction)
	}
	b.WriteString(";")
}

// whereParams copies the fragment's parameter map, tolerating a nil Where.
func whereParams(where *Where) map[string]any {
	if where == nil || len(where.Params) == 0 {
		return map[string]any{}
	}
	params := make(map[string]any, len(where.Params))
	for name, value := range where.Params {
		params[name] = value
	}
	return params
}
