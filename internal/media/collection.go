package media

// Collection is an ordered list of records indexed by id. The zero value is
// an empty collection. Not safe for concurrent use; Synchronizer guards it.
type Collection struct {
	records []Record
	index   map[ID]int
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// All returns a copy of the records in order.
func (c *Collection) All() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)

	return out
}

// Get looks up a record by id.
func (c *Collection) Get(id ID) (Record, bool) {
	i, ok := c.index[id]
	if !ok {
		return Record{}, false
	}

	return c.records[i], true
}

func (c *Collection) replaceAll(records []Record) {
	c.records = make([]Record, len(records))
	copy(c.records, records)
	c.reindex()
}

func (c *Collection) prepend(r Record) {
	c.records = append([]Record{r}, c.records...)
	c.reindex()
}

// replace swaps the record with r.ID in place. Reports whether it matched.
func (c *Collection) replace(r Record) bool {
	i, ok := c.index[r.ID]
	if !ok {
		return false
	}

	c.records[i] = r

	return true
}

// remove drops the record with the given id. Reports whether it matched.
func (c *Collection) remove(id ID) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}

	c.records = append(c.records[:i:i], c.records[i+1:]...)
	c.reindex()

	return true
}

func (c *Collection) reindex() {
	c.index = make(map[ID]int, len(c.records))
	for i, r := range c.records {
		c.index[r.ID] = i
	}
}
