// Package migrate implements schema evolution for the MedicalSystem ORM.
// This file defines the schema differ: comparing two snapshots into an
// ordered change list and emitting forward and reverse SQL per change.
package migrate

import (
	"fmt"
	"strings"
	"time"
)

// ChangeKind identifies one kind of schema edit.
type ChangeKind string

const (
	CreateTable ChangeKind = "CreateTable"
	DropTable   ChangeKind = "DropTable"
	AddColumn   ChangeKind = "AddColumn"
	DropColumn  ChangeKind = "DropColumn"
	AlterColumn ChangeKind = "AlterColumn"
)

// Change is one schema edit between two snapshots.
//
// Table changes carry the affected TableSnapshot; column changes carry the
// old and/or new ColumnSnapshot so that reverse SQL can be generated from
// the same record.
type Change struct {
	Kind      ChangeKind
	Table     string
	Column    string
	OldColumn *ColumnSnapshot
	NewColumn *ColumnSnapshot
	OldTable  *TableSnapshot
	NewTable  *TableSnapshot
}

// Compare diffs two snapshots into an ordered change list.
//
// A nil old snapshot yields one CreateTable per new table. Otherwise new
// tables are visited in declaration order: missing tables become
// CreateTable, existing tables are compared column by column (AddColumn
// for new columns, AlterColumn for changed ones, DropColumn for removed
// ones), and finally every old table absent from the new snapshot becomes
// DropTable. Table and column names compare case-insensitively.
func Compare(old, new *Snapshot) []Change {
	changeList := []Change{}

	if old == nil {
		for index := range new.Tables {
			table := &new.Tables[index]
			changeList = append(changeList, Change{Kind: CreateTable, Table: table.TableName, NewTable: table})
		}
		return changeList
	}

	for index := range new.Tables {
		newTable := &new.Tables[index]
		oldTable := old.Table(newTable.TableName)
		if oldTable == nil {
			changeList = append(changeList, Change{Kind: CreateTable, Table: newTable.TableName, NewTable: newTable})
			continue
		}
		changeList = append(changeList, compareColumns(oldTable, newTable)...)
	}

	for index := range old.Tables {
		oldTable := &old.Tables[index]
		if new.Table(oldTable.TableName) == nil {
			changeList = append(changeList, Change{Kind: DropTable, Table: oldTable.TableName, OldTable: oldTable})
		}
	}
	return changeList
}

// compareColumns diffs one table present in both snapshots.
func compareColumns(oldTable, newTable *TableSnapshot) []Change {
	changeList := []Change{}

	for index := range newTable.Columns {
		newColumn := &newTable.Columns[index]
		oldColumn := oldTable.Column(newColumn.Name)
		switch {
		case oldColumn == nil:
			changeList = append(changeList, Change{
				Kind: AddColumn, Table: newTable.TableName, Column: newColumn.Name, NewColumn: newColumn,
			})
		case !oldColumn.Equal(newColumn):
			changeList = append(changeList, Change{
				Kind: AlterColumn, Table: newTable.TableName, Column: newColumn.Name,
				OldColumn: oldColumn, NewColumn: newColumn,
			})
		}
	}

	for index := range oldTable.Columns {
		oldColumn := &oldTable.Columns[index]
		if newTable.Column(oldColumn.Name) == nil {
			changeList = append(changeList, Change{
				Kind: DropColumn, Table: newTable.TableName, Column: oldColumn.Name, OldColumn: oldColumn,
			})
		}
	}
	return changeList
}

// UpSQL emits the forward DDL for the change. AlterColumn may emit several
// statements separated by newlines.
func (c Change) UpSQL() string {
	switch c.Kind {
	case CreateTable:
		return createTableSQL(c.NewTable)
	case DropTable:
		return dropTableSQL(c.Table)
	case AddColumn:
		return addColumnSQL(c.Table, c.NewColumn)
	case DropColumn:
		return dropColumnSQL(c.Table, c.Column)
	case AlterColumn:
		return alterColumnSQL(c.Table, c.OldColumn, c.NewColumn)
	}
	return ""
}

// DownSQL emits the reverse DDL for the change, such that applying UpSQL
// then DownSQL is a no-op on the schema.
func (c Change) DownSQL() string {
	switch c.Kind {
	case CreateTable:
		return dropTableSQL(c.Table)
	case DropTable:
		return createTableSQL(c.OldTable)
	case AddColumn:
		return dropColumnSQL(c.Table, c.Column)
	case DropColumn:
		return addColumnSQL(c.Table, c.OldColumn)
	case AlterColumn:
		return alterColumnSQL(c.Table, c.NewColumn, c.OldColumn)
	}
	return ""
}

// String renders the change for plan listings and log markers.
func (c Change) String() string {
	if c.Column != "" {
		return fmt.Sprintf("%s %s.%s", c.Kind, c.Table, c.Column)
	}
	return fmt.Sprintf("%s %s", c.Kind, c.Table)
}

// MigrationName derives a human-readable migration name from the change
// list: InitialCreate when every change creates a table, otherwise a name
// driven by the first change.
func MigrationName(changeList []Change, now time.Time) string {
	if len(changeList) == 0 {
		return fmt.Sprintf("Migration_%s", now.UTC().Format("20060102150405"))
	}

	allCreates := true
	for _, change := range changeList {
		if change.Kind != CreateTable {
			allCreates = false
			break
		}
	}
	if allCreates {
		return "InitialCreate"
	}

	first := changeList[0]
	switch first.Kind {
	case CreateTable:
		return "Create" + first.Table
	case AddColumn:
		return "Add" + first.Column + "To" + first.Table
	case DropColumn:
		return "Remove" + first.Column + "From" + first.Table
	case AlterColumn:
		return "Alter" + first.Column + "In" + first.Table
	case DropTable:
		return "Drop" + first.Table
	}
	return fmt.Sprintf("Migration_%s", now.UTC().Format("20060102150405"))
}

// columnDefinitionSQL renders a column definition from its snapshot. An
// auto-increment primary key collapses the type slot to SERIAL.
func columnDefinitionSQL(column *ColumnSnapshot) string {
	if column.PrimaryKey && column.AutoIncrement {
		return fmt.Sprintf("%q SERIAL PRIMARY KEY", column.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%q %s", column.Name, column.Type)
	if column.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if !column.Nullable {
		b.WriteString(" NOT NULL")
	}
	if column.Unique {
		b.WriteString(" UNIQUE")
	}
	if column.DefaultValue != nil {
		b.WriteString(" DEFAULT " + *column.DefaultValue)
	}
	return b.String()
}

func createTableSQL(table *TableSnapshot) string {
	definitionList := []string{}
	for index := range table.Columns {
		definitionList = append(definitionList, columnDefinitionSQL(&table.Columns[index]))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s);", table.TableName, strings.Join(definitionList, ", "))
}

func dropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %q CASCADE;", table)
}

// addColumnSQL renders an ADD COLUMN statement. A non-nullable column gets
// a type-derived default injected so existing rows stay valid.
func addColumnSQL(table string, column *ColumnSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %q ADD COLUMN %q %s", table, column.Name, column.Type)
	if !column.Nullable {
		b.WriteString(" DEFAULT " + typeDefault(column.Type))
	}
	if column.Unique {
		b.WriteString(" UNIQUE")
	}
	b.WriteString(";")
	return b.String()
}

func dropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %q DROP COLUMN %q;", table, column)
}

// alterColumnSQL renders the statements turning the old column shape into
// the new one: type, nullability, and uniqueness, in that order.
func alterColumnSQL(table string, old, new *ColumnSnapshot) string {
	statementList := []string{}

	if old.Type != new.Type {
		statementList = append(statementList,
			fmt.Sprintf("ALTER TABLE %q ALTER COLUMN %q TYPE %s;", table, new.Name, new.Type))
	}
	if old.Nullable != new.Nullable {
		action := "SET NOT NULL"
		if new.Nullable {
			action = "DROP NOT NULL"
		}
		statementList = append(statementList,
			fmt.Sprintf("ALTER TABLE %q ALTER COLUMN %q %s;", table, new.Name, action))
	}
	if old.Unique != new.Unique {
		constraint := fmt.Sprintf("%s_%s_unique", table, new.Name)
		if new.Unique {
			statementList = append(statementList,
				fmt.Sprintf("ALTER TABLE %q ADD CONSTRAINT %q UNIQUE (%q);", table, constraint, new.Name))
		} else {
			statementList = append(statementList,
				fmt.Sprintf("ALTER TABLE %q DROP CONSTRAINT %q;", table, constraint))
		}
	}
	return strings.Join(statementList, "\n")
}

// typeDefault picks the backfill default injected for non-nullable added
// columns: 0 for integers, 0.0 for floating types, FALSE for booleans,
// NOW() for timestamps, and the empty string otherwise.
func typeDefault(sqlType string) string {
	upper := strings.ToUpper(sqlType)
	switch {
	case strings.HasPrefix(upper, "INTEGER"), strings.HasPrefix(upper, "BIGINT"),
		strings.HasPrefix(upper, "SMALLINT"):
		return "0"
	case strings.HasPrefix(upper, "DECIMAL"), strings.HasPrefix(upper, "NUMERIC"),
		strings.HasPrefix(upper, "REAL"), strings.HasPrefix(upper, "DOUBLE"):
		return "0.0"
	case strings.HasPrefix(upper, "BOOLEAN"):
		return "FALSE"
	case strings.HasPrefix(upper, "TIMESTAMP"):
		return "NOW()"
	}
	return "''"
}
