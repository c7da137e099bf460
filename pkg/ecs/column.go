package ecs

import (
	"github.com/argus-labs/erased/pkg/assert"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// columnFactory is a function that creates a new abstractColumn instance.
type columnFactory func() abstractColumn

// abstractColumn is an internal interface for generic column operations.
type abstractColumn interface {
	len() int
	name() string
	extend()

	setAbstract(row int, component Component)
	getAbstract(row int) Component
	remove(row int)

	marshal() ([]json.RawMessage, error)
	unmarshal([]json.RawMessage) error
}

var _ abstractColumn = &column[Component]{}

// columnCapacity is the initial capacity of a column.
const columnCapacity = 16

// column stores the component data of entities in an archetype. The length of the components slice
// must match the length of the entities slice in the archetype.
type column[T Component] struct {
	compName   string // The name of the component stored in this column
	components []T    // Array containing the component data
}

// newColumn creates a new column with the specified type.
func newColumn[T Component]() column[T] {
	var zero T
	return column[T]{
		compName:   zero.Name(),
		components: make([]T, 0, columnCapacity),
	}
}

// newColumnFactory returns a function that constructs a new column of type T.
func newColumnFactory[T Component]() columnFactory {
	return func() abstractColumn {
		col := newColumn[T]()
		return &col
	}
}

// len returns the length of the components slice.
func (c *column[T]) len() int {
	return len(c.components)
}

// name returns the name of the component type.
func (c *column[T]) name() string {
	return c.compName
}

// extend adds a new row to the components slice and initializes it with the zero value.
func (c *column[T]) extend() {
	var zero T
	c.components = append(c.components, zero)
}

// set sets the component in a given row. A row corresponds to a single entity. Whenever possible
// prefer this method over setAbstract since it avoids the type assertion and avoids boxing the
// component data, which does allocations.
func (c *column[T]) set(row int, component T) {
	assert.That(row < len(c.components), "column isn't extended when entity is created")
	c.components[row] = component
}

// setAbstract sets the component in a given row. Use this method only when you don't know the
// concrete type of the component. The caller must make sure the dynamic type of component is T.
func (c *column[T]) setAbstract(row int, component Component) {
	concrete, ok := component.(T)
	assert.That(ok, "tried to set %T in column of %s", component, c.compName)
	c.set(row, concrete)
}

// get gets the value from a given row. Expects the caller to make sure the row is inside the column.
func (c *column[T]) get(row int) T {
	assert.That(row < len(c.components), "component doesn't exist")
	return c.components[row]
}

// getAbstract gets the value from a given row boxed as a Component.
func (c *column[T]) getAbstract(row int) Component {
	return c.get(row)
}

// remove removes a given row by swapping the last value into it.
func (c *column[T]) remove(row int) {
	assert.That(row < len(c.components), "tried to remove component that doesn't exist")

	lastIndex := len(c.components) - 1
	c.components[row] = c.components[lastIndex]
	var zero T
	c.components[lastIndex] = zero
	c.components = c.components[:lastIndex]
}

// marshal encodes every row of the column as JSON.
func (c *column[T]) marshal() ([]json.RawMessage, error) {
	rows := make([]json.RawMessage, len(c.components))
	for i, component := range c.components {
		data, err := json.Marshal(component)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to serialize %s at row %d", c.compName, i)
		}
		rows[i] = data
	}
	return rows, nil
}

// unmarshal replaces the column contents with the decoded rows.
func (c *column[T]) unmarshal(rows []json.RawMessage) error {
	components := make([]T, len(rows))
	for i, data := range rows {
		if err := json.Unmarshal(data, &components[i]); err != nil {
			return eris.Wrapf(err, "failed to deserialize %s at row %d", c.compName, i)
		}
	}
	c.components = components
	return nil
}
