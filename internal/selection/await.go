package selection

import (
	"context"

	"github.com/smileynet/caseview/internal/casedata"
)

// Loader fetches full test case records.
type Loader interface {
	Load(ctx context.Context, id string) (*casedata.TestCase, error)
}

// Await resolves outcome synchronously: while the active record needs
// loading it is fetched from l and reported through Complete. It returns
// the load error, if any. Interactive callers fetch asynchronously and
// call Complete themselves instead.
func Await(ctx context.Context, c *Controller, l Loader, outcome Outcome) error {
	for outcome == NeedsLoad || outcome == Pending {
		id := c.State().ActiveTestCaseID
		tc, err := l.Load(ctx, id)
		var cerr error
		outcome, cerr = c.Complete(id, tc, err)
		if cerr != nil {
			return cerr
		}
	}
	return nil
}
