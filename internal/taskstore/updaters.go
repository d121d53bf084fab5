package taskstore

import "github.com/julianstephens/surgisync/internal/models"

// Append adds a task at the end. A task without priority becomes Routine.
func Append(task models.TaskRecord) Updater {
	if task.Priority == "" {
		task.Priority = models.PriorityRoutine
	}
	return func(tasks []models.TaskRecord) []models.TaskRecord {
		return append(tasks, task)
	}
}

// Replace swaps the task at index. Out-of-range indexes leave the list as is.
func Replace(index int, task models.TaskRecord) Updater {
	if task.Priority == "" {
		task.Priority = models.PriorityRoutine
	}
	return func(tasks []models.TaskRecord) []models.TaskRecord {
		if index < 0 || index >= len(tasks) {
			return tasks
		}
		tasks[index] = task
		return tasks
	}
}

// Delete removes the task at index.
func Delete(index int) Updater {
	return func(tasks []models.TaskRecord) []models.TaskRecord {
		if index < 0 || index >= len(tasks) {
			return tasks
		}
		return append(tasks[:index], tasks[index+1:]...)
	}
}

// SetStatus changes only the status of the task at index.
func SetStatus(index int, status models.TaskStatus) Updater {
	return func(tasks []models.TaskRecord) []models.TaskRecord {
		if index < 0 || index >= len(tasks) {
			return tasks
		}
		tasks[index].Status = status
		return tasks
	}
}

// Clear drops every task.
func Clear() Updater {
	return func([]models.TaskRecord) []models.TaskRecord { return nil }
}

// Chain applies updaters left to right.
func Chain(updaters ...Updater) Updater {
	return func(tasks []models.TaskRecord) []models.TaskRecord {
		for _, u := range updaters {
			tasks = u(tasks)
		}
		return tasks
	}
}

// RemoveFirst deletes the first task equal to task. Used when an index may
// have shifted since the caller looked.
func RemoveFirst(task models.TaskRecord) Updater {
	return func(tasks []models.TaskRecord) []models.TaskRecord {
		for i, t := range tasks {
			if t == task {
				return append(tasks[:i], tasks[i+1:]...)
			}
		}
		return tasks
	}
}
