package command

// Log is the ordered buffer of records for one execution context.
//
// It is used from the context's scripting goroutine only, including
// re-entrant calls made while a drained batch is being delivered.
type Log struct {
	records []Record
	seq     uint64
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds r at the end and returns its sequence number.
func (l *Log) Append(r Record) uint64 {
	l.seq++
	r.Seq = l.seq
	l.records = append(l.records, r)
	return r.Seq
}

// Size returns the number of undrained records.
func (l *Log) Size() int {
	return len(l.records)
}

// LastSeq returns the last sequence number handed out.
func (l *Log) LastSeq() uint64 {
	return l.seq
}

// Drain hands every record over to a batch and leaves the log empty.
func (l *Log) Drain() *Batch {
	b := &Batch{Records: l.records}
	l.records = nil
	return b
}

// Requeue puts undelivered records back in front of anything appended since
// the drain. The batch gives up ownership of them.
func (l *Log) Requeue(b *Batch) {
	if b == nil || b.released || len(b.Records) == 0 {
		return
	}
	merged := make([]Record, 0, len(b.Records)+len(l.records))
	merged = append(merged, b.Records...)
	merged = append(merged, l.records...)
	l.records = merged
	b.Records = nil
	b.released = true
}

// Records returns a copy of the undrained records, for inspection.
func (l *Log) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Batch is a drained run of records owned by the consumer.
type Batch struct {
	Records  []Record
	released bool
}

// Len returns the number of records.
func (b *Batch) Len() int {
	return len(b.Records)
}

// Release drops every record's references and payloads. Idempotent.
func (b *Batch) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	for i := range b.Records {
		b.Records[i].Release()
	}
}

// Released reports whether Release or Requeue consumed the batch.
func (b *Batch) Released() bool {
	return b.released
}

// Split partitions b into records with Seq <= seq and the rest. b itself is
// consumed and must not be used afterwards.
func (b *Batch) Split(seq uint64) (consumed, rest *Batch) {
	i := 0
	for i < len(b.Records) && b.Records[i].Seq <= seq {
		i++
	}
	consumed = &Batch{Records: b.Records[:i:i]}
	rest = &Batch{Records: b.Records[i:]}
	b.Records = nil
	b.released = true
	return consumed, rest
}
