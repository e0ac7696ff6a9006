package tasks

// TaskSchedulerInterface is the part of the scheduler the application
// drives:
//
//	scheduler := NewScheduler(configCache, env, interval, workers)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewProcessFeedTask(feedConfig, env))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
