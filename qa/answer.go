package qa

// answerQueue implements cyclic reuse of a question's answer list: the head
// is consumed on each call to Next; if more than one answer remained, the
// consumed head is re-appended at the tail so it comes up again after the
// others have each had a turn. A single-answer queue returns the same
// answer forever.
type answerQueue struct {
	items []string
}

func newAnswerQueue(answers []string) *answerQueue {
	return &answerQueue{items: append([]string(nil), answers...)}
}

// Next returns the current head answer and rotates the queue when more
// than one answer remains.
func (q *answerQueue) Next() string {
	if len(q.items) == 0 {
		return ""
	}
	head := q.items[0]
	if len(q.items) > 1 {
		q.items = append(q.items[1:], head)
	}
	return head
}

// StandardTable returns a ready-made [Table] for the two prompts the
// original run engine's std_qa hard-coded: an overwrite confirmation and an
// SSH host-key continue-connecting prompt. Supplements the distilled spec
// with a feature the original exposed but the distillation dropped.
func StandardTable() *Table {
	return &Table{
		Exact: map[string][]string{
			"Are you sure you want to continue connecting (yes/no)?": {"yes"},
		},
		Reg: map[string][]string{
			`.*[Oo]verwrite.*\(y/n\)\?`: {"y"},
		},
	}
}
