package console

import (
	"fmt"

	"grimm.is/iwaf/internal/scheduler"
)

// Task returns the status of one scheduled task.
func (c *Console) Task(id string) (scheduler.TaskStatus, bool) {
	return c.sched.GetTaskStatus(id)
}

// RunTask runs a simulation task immediately, outside its schedule. The
// task's next slot is recomputed from now.
func (c *Console) RunTask(id string) error {
	if err := c.sched.RunTask(id); err != nil {
		return err
	}
	c.logger.Info("task run on demand", "task", id)
	return nil
}

// EnableTask pauses or resumes a simulation task.
func (c *Console) EnableTask(id string, enabled bool) error {
	if err := c.sched.EnableTask(id, enabled); err != nil {
		return fmt.Errorf("enable task: %w", err)
	}
	c.logger.Info("task toggled", "task", id, "enabled", enabled)
	return nil
}

// SimulationRunning reports whether the background ticker is active. It is
// false for consoles driven only through RunDue.
func (c *Console) SimulationRunning() bool {
	return c.sched.IsRunning()
}
