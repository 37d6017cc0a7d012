package reconcile

import (
	"fmt"
	"sort"

	"github.com/sandeepkv93/tasksync/internal/config"
	"github.com/sandeepkv93/tasksync/internal/model"
)

// UpdateContract is the set of task fields a backend revision accepts on a
// partial update. Anything outside it is dropped before the request.
type UpdateContract struct {
	Version string
	Fields  []string
}

// Contracts lists the known revisions. v1 is what the deployed backend
// understands.
var Contracts = map[string]UpdateContract{
	"v1": {
		Version: "v1",
		Fields:  []string{model.FieldTitle, model.FieldDescription, model.FieldCompleted},
	},
	"v2": {
		Version: "v2",
		Fields: []string{
			model.FieldTitle, model.FieldDescription, model.FieldCompleted,
			model.FieldCategoryID, model.FieldDueDate, model.FieldPriority,
		},
	},
}

func ContractFor(version string) (UpdateContract, error) {
	c, ok := Contracts[version]
	if !ok {
		return UpdateContract{}, fmt.Errorf("%w update.contract: %q", config.ErrInvalid, version)
	}
	return c, nil
}

func (c UpdateContract) Allows(field string) bool {
	for _, f := range c.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Narrow splits values into what may be sent and the sorted names of what
// was dropped.
func (c UpdateContract) Narrow(values map[string]any) (map[string]any, []string) {
	sent := make(map[string]any, len(values))
	var dropped []string
	for k, v := range values {
		if c.Allows(k) {
			sent[k] = v
			continue
		}
		dropped = append(dropped, k)
	}
	sort.Strings(dropped)
	return sent, dropped
}
