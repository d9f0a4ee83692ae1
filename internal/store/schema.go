package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column definitions, laid out the way ent's generated
// migrate package declares them. Every event table shares the
// sequence/timestamp prefix.

var (
	// MasteryRecordsColumns holds the columns for the "mastery_records" table.
	MasteryRecordsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "elements", Type: field.TypeJSON},
		{Name: "global_mastery", Type: field.TypeInt, Default: 0},
		{Name: "status", Type: field.TypeString, Default: "not_started"},
		{Name: "version", Type: field.TypeInt64, Default: 0},
		{Name: "last_updated", Type: field.TypeTime},
	}
	// MasteryRecordsTable holds the schema information for the "mastery_records" table.
	MasteryRecordsTable = &schema.Table{
		Name:       "mastery_records",
		Columns:    MasteryRecordsColumns,
		PrimaryKey: []*schema.Column{MasteryRecordsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "masteryrecord_user_id_lesson_id",
				Unique:  true,
				Columns: []*schema.Column{MasteryRecordsColumns[1], MasteryRecordsColumns[2]},
			},
		},
	}

	// MasteryEventsColumns holds the columns for the "mastery_events" table.
	MasteryEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "element_id", Type: field.TypeString},
		{Name: "reason", Type: field.TypeString, Nullable: true},
		{Name: "requested_score", Type: field.TypeInt},
		{Name: "applied_score", Type: field.TypeInt},
		{Name: "from_mastery", Type: field.TypeInt},
		{Name: "to_mastery", Type: field.TypeInt},
		{Name: "from_status", Type: field.TypeString},
		{Name: "to_status", Type: field.TypeString},
	}
	// MasteryEventsTable holds the schema information for the "mastery_events" table.
	MasteryEventsTable = &schema.Table{
		Name:       "mastery_events",
		Columns:    MasteryEventsColumns,
		PrimaryKey: []*schema.Column{MasteryEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "masteryevent_timestamp",
				Unique:  false,
				Columns: []*schema.Column{MasteryEventsColumns[2]},
			},
			{
				Name:    "masteryevent_user_id_lesson_id",
				Unique:  false,
				Columns: []*schema.Column{MasteryEventsColumns[3], MasteryEventsColumns[4]},
			},
		},
	}

	// GemEventsColumns holds the columns for the "gem_events" table.
	GemEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "reward_id", Type: field.TypeString, Unique: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "gem_type", Type: field.TypeString},
		{Name: "rarity", Type: field.TypeString},
		{Name: "final_score", Type: field.TypeInt},
		{Name: "coins", Type: field.TypeInt},
	}
	// GemEventsTable holds the schema information for the "gem_events" table.
	GemEventsTable = &schema.Table{
		Name:       "gem_events",
		Columns:    GemEventsColumns,
		PrimaryKey: []*schema.Column{GemEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "gemevent_user_id",
				Unique:  false,
				Columns: []*schema.Column{GemEventsColumns[4]},
			},
		},
	}

	// LessonElementsColumns holds the columns for the "lesson_elements" table.
	LessonElementsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "element_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "weight", Type: field.TypeFloat64, Default: 1},
		{Name: "position", Type: field.TypeInt},
	}
	// LessonElementsTable holds the schema information for the "lesson_elements" table.
	LessonElementsTable = &schema.Table{
		Name:       "lesson_elements",
		Columns:    LessonElementsColumns,
		PrimaryKey: []*schema.Column{LessonElementsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "lessonelement_lesson_id_element_id",
				Unique:  true,
				Columns: []*schema.Column{LessonElementsColumns[1], LessonElementsColumns[2]},
			},
		},
	}

	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "atom_id", Type: field.TypeString},
		{Name: "widget_type", Type: field.TypeString},
		{Name: "correct_answer", Type: field.TypeJSON},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       "questions",
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "question_lesson_id",
				Unique:  false,
				Columns: []*schema.Column{QuestionsColumns[1]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		MasteryRecordsTable,
		MasteryEventsTable,
		GemEventsTable,
		LessonElementsTable,
		QuestionsTable,
	}
)
