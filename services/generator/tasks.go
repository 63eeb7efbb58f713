package generator

import (
	"fmt"

	"sbomd/pkg/genconfig"
)

// Task is one unit of generation work. A request fans out into one task per
// configured product, deliverable or image.
type Task struct {
	RequestID  string
	Index      int
	Target     string
	Config     genconfig.Config
	Processors string
}

// tasksFor expands a configuration into its generation tasks.
func tasksFor(requestID string, cfg genconfig.Config) []Task {
	processors := genconfig.ProcessorsCommand(cfg)

	newTask := func(index int, target string) Task {
		return Task{
			RequestID:  requestID,
			Index:      index,
			Target:     target,
			Config:     cfg,
			Processors: processors,
		}
	}

	switch c := cfg.(type) {
	case *genconfig.PncBuildConfig:
		if len(c.Products) == 0 {
			return []Task{newTask(0, c.BuildID)}
		}
		tasks := make([]Task, 0, len(c.Products))
		for i := range c.Products {
			tasks = append(tasks, newTask(i, c.BuildID))
		}
		return tasks
	case *genconfig.SyftImageConfig:
		return []Task{newTask(0, c.Image)}
	case *genconfig.OperationConfig:
		if len(c.DeliverableURLs) == 0 {
			return []Task{newTask(0, c.OperationID)}
		}
		tasks := make([]Task, 0, len(c.DeliverableURLs))
		for i, u := range c.DeliverableURLs {
			tasks = append(tasks, newTask(i, u))
		}
		return tasks
	case *genconfig.DeliverableAnalysisConfig:
		tasks := make([]Task, 0, len(c.DeliverableURLs))
		for i, u := range c.DeliverableURLs {
			tasks = append(tasks, newTask(i, u))
		}
		return tasks
	case *genconfig.BrewRPMConfig:
		return []Task{newTask(0, c.AdvisoryID)}
	default:
		return nil
	}
}

func (t Task) String() string {
	return fmt.Sprintf("%s[%d] %s", t.RequestID, t.Index, t.Target)
}
