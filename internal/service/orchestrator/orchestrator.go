package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// -----------------------------
// Job 定义
// -----------------------------

// UnitKind 生成单元类型
type UnitKind string

const (
	UnitSection UnitKind = "section" // 章节内容
	UnitDiagram UnitKind = "diagram" // 图示图片
)

// Job 一个待执行的生成单元
// Handle 为 UUID 任务句柄，与章节/图示行上的 job_id 对应
type Job struct {
	Handle     string
	Kind       UnitKind
	UnitID     uint
	EnqueuedAt time.Time
	RetryCount int
	MaxRetries int
	Timeout    time.Duration
}

// -----------------------------
// UnitExecutor 接口
// -----------------------------
type UnitExecutor interface {
	ExecuteUnit(ctx context.Context, kind UnitKind, unitID uint) error
}

// -----------------------------
// Orchestrator
// -----------------------------
type Orchestrator struct {
	jobQueue    *jobQueue
	retryQueue  *jobQueue
	retryTicker *time.Ticker

	pool *ants.Pool

	executor UnitExecutor

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	activeCancellations map[string]context.CancelFunc
	cancelMutex         sync.Mutex
}

// -----------------------------
// 错误定义
// -----------------------------
var (
	ErrOrchestratorStopped = errors.New("orchestrator is stopped")
	ErrQueueFull           = errors.New("job queue is full")
)

// NewUnitJob
// 说明：创建一个新的生成单元任务，初始化重试计数与超时
// 参数：handle 任务句柄；kind 单元类型；unitID 单元ID；maxRetries 最大重试次数
func NewUnitJob(handle string, kind UnitKind, unitID uint, maxRetries int) *Job {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Job{
		Handle:     handle,
		Kind:       kind,
		UnitID:     unitID,
		EnqueuedAt: time.Now(),
		RetryCount: 0,
		MaxRetries: maxRetries,
		Timeout:    10 * time.Minute,
	}
}

// -----------------------------
// 构造函数
// -----------------------------
func NewOrchestrator(maxWorkers int, executor UnitExecutor) (*Orchestrator, error) {
	ctx, cancel := context.WithCancel(context.Background())

	jobQ := newJobQueue(500)
	retryQ := newJobQueue(500)

	pool, err := ants.NewPool(maxWorkers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(1000),
		ants.WithExpiryDuration(5*time.Minute),
	)
	if err != nil {
		klog.Errorf("ants pool initialization failed: %v", err)
		cancel()
		return nil, err
	}

	return &Orchestrator{
		jobQueue:            jobQ,
		retryQueue:          retryQ,
		retryTicker:         time.NewTicker(500 * time.Millisecond),
		pool:                pool,
		activeCancellations: make(map[string]context.CancelFunc),
		executor:            executor,
		ctx:                 ctx,
		cancel:              cancel,
	}, nil
}

// -----------------------------
// 启动
// -----------------------------
func (o *Orchestrator) Start() {
	go o.dispatchLoop()
	go o.processRetryQueue()
}

// -----------------------------
// 停止
// -----------------------------
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		klog.V(6).Infof("Orchestrator stopping...")

		// 1. 关闭队列停止接收新任务。此时不取消 ctx，
		// 分发循环与重试循环继续消费，把已入队的任务交给协程池
		o.jobQueue.Close()
		o.retryQueue.Close()

		// 2. 等待队列排空，最长等 1 分钟
		drainDeadline := time.Now().Add(time.Minute)
		for o.jobQueue.Len() > 0 || o.retryQueue.Len() > 0 {
			if time.Now().After(drainDeadline) {
				klog.Warningf("Queue drain timed out: main=%d, retry=%d", o.jobQueue.Len(), o.retryQueue.Len())
				break
			}
			time.Sleep(100 * time.Millisecond)
			klog.V(6).Infof("Waiting for queues to empty: main=%d, retry=%d", o.jobQueue.Len(), o.retryQueue.Len())
		}

		// 3. 等待正在执行的生成任务完成
		runningJobs := o.pool.Running()
		if runningJobs > 0 {
			klog.V(6).Infof("Waiting for %d running jobs to complete (timeout: 12min)", runningJobs)
		}

		// ReleaseTimeout 阻塞直到任务全部完成或超时（覆盖 10 分钟的单元超时）
		timeout := 12 * time.Minute
		rErr := o.pool.ReleaseTimeout(timeout)

		if rErr == nil {
			klog.V(6).Infof("All running jobs completed before timeout")
		} else {
			klog.Warningf("Timeout after %v: some running jobs may be forced to stop", timeout)
		}

		// 4. 最后取消 ctx：结束重试循环，强停超时未完成的任务
		o.cancel()

		klog.V(6).Infof("Orchestrator stopped completely")
	})
}

// -----------------------------
// 入队任务
// -----------------------------
func (o *Orchestrator) EnqueueJob(job *Job) error {
	select {
	case <-o.ctx.Done():
		return ErrOrchestratorStopped
	default:
	}

	if err := o.jobQueue.Enqueue(job); err != nil {
		if errors.Is(err, ErrQueueFull) {
			klog.Warningf("Job queue full: kind=%s, unitID=%d", job.Kind, job.UnitID)
		}
		return err
	}
	klog.V(6).Infof("Job enqueued: kind=%s, unitID=%d, handle=%s", job.Kind, job.UnitID, job.Handle)
	return nil
}

func (o *Orchestrator) EnqueueBatch(jobs []*Job) error {
	var failedJobs []*Job
	for _, job := range jobs {
		if err := o.EnqueueJob(job); err != nil {
			klog.Warningf("Batch enqueue failed for kind=%s, unitID=%d: %v", job.Kind, job.UnitID, err)
			failedJobs = append(failedJobs, job)
		}
	}
	if len(failedJobs) > 0 {
		return fmt.Errorf("failed to enqueue %d jobs (total %d)", len(failedJobs), len(jobs))
	}
	return nil
}

// -----------------------------
// 取消任务
// -----------------------------
func (o *Orchestrator) registerCancel(handle string, cancel context.CancelFunc) {
	o.cancelMutex.Lock()
	defer o.cancelMutex.Unlock()
	o.activeCancellations[handle] = cancel
}

func (o *Orchestrator) unregisterCancel(handle string) {
	o.cancelMutex.Lock()
	defer o.cancelMutex.Unlock()
	delete(o.activeCancellations, handle)
}

func (o *Orchestrator) CancelJob(handle string) bool {
	o.cancelMutex.Lock()
	cancel, ok := o.activeCancellations[handle]
	o.cancelMutex.Unlock()
	if !ok {
		return false
	}

	klog.V(6).Infof("Cancelling job: handle=%s", handle)
	cancel()
	return true
}

// -----------------------------
// Dispatch Loop
// -----------------------------
// dispatchLoop 持续消费主队列
// Dequeue 在队列空时阻塞，队列关闭且排空后返回 false，循环随之退出
func (o *Orchestrator) dispatchLoop() {
	for {
		job, ok := o.jobQueue.Dequeue()
		if !ok {
			return
		}
		o.tryDispatch(job)
	}
}

// -----------------------------
// Retry Queue Loop
// -----------------------------
func (o *Orchestrator) processRetryQueue() {
	defer o.retryTicker.Stop()
	// 协程级Panic防护，避免循环退出
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("Retry queue loop panic recovered: %v", r)
		}
	}()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.retryTicker.C:
			for range 10 {
				job, ok := o.retryQueue.Dequeue()
				if !ok {
					break
				}
				// 单个任务Panic不影响整个循环
				func() {
					defer func() {
						if r := recover(); r != nil {
							klog.Errorf("Retry dispatch panic: kind=%s, unitID=%d, err=%v",
								job.Kind, job.UnitID, r)
						}
					}()
					o.tryDispatch(job)
				}()
			}
		}
	}
}

// -----------------------------
// Try Dispatch
// -----------------------------
// tryDispatch
// 说明：尝试将任务提交到协程池；池提交失败时按重试上限进入重试队列
// tryDispatch 只负责分发，执行期重试由 executeJob 统一控制
func (o *Orchestrator) tryDispatch(job *Job) {
	if job.MaxRetries <= 0 || job.RetryCount >= job.MaxRetries {
		klog.Warningf("任务重试已达上限，放弃入队: kind=%s, unitID=%d, retry=%d/%d",
			job.Kind, job.UnitID, job.RetryCount, job.MaxRetries)
		return
	}
	if err := o.pool.Submit(func() {
		o.executeJob(job)
	}); err == nil {
		return
	} else {
		klog.Errorf("提交任务到协程池失败: kind=%s, unitID=%d, err=%v", job.Kind, job.UnitID, err)
	}

	job.RetryCount++
	if err := o.retryQueue.Enqueue(job); err != nil {
		klog.Errorf("任务重试入队失败: kind=%s, unitID=%d, err=%v", job.Kind, job.UnitID, err)
	}
}

// executeJob 统一控制重试与退避
func (o *Orchestrator) executeJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("Job panic recovered: kind=%s, unitID=%d, err=%v", job.Kind, job.UnitID, r)
			o.unregisterCancel(job.Handle)
		}
	}()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(o.ctx, timeout)
	defer cancel()
	runCtx, manualCancel := context.WithCancel(ctx)
	defer manualCancel()

	o.registerCancel(job.Handle, manualCancel)
	defer o.unregisterCancel(job.Handle)

	for i := job.RetryCount; i < job.MaxRetries; i++ {
		job.RetryCount = i

		err := o.executor.ExecuteUnit(runCtx, job.Kind, job.UnitID)
		if err == nil {
			klog.V(6).Infof("Job completed: kind=%s, unitID=%d", job.Kind, job.UnitID)
			return
		}

		backoff := time.Second << i
		if backoff > 5*time.Minute {
			backoff = 5 * time.Minute
		}

		klog.Warningf("任务重试失败: kind=%s, unitID=%d, retry=%d/%d, err=%v, backoff=%v",
			job.Kind, job.UnitID, i+1, job.MaxRetries, err, backoff)

		select {
		case <-runCtx.Done():
			klog.Warningf("任务被取消或超时: kind=%s, unitID=%d", job.Kind, job.UnitID)
			return
		case <-time.After(backoff):
		}
	}

	klog.Errorf("任务执行失败且超过重试上限: kind=%s, unitID=%d", job.Kind, job.UnitID)
}

// -----------------------------
// Queue Status
// -----------------------------
type QueueStatus struct {
	QueueLength   int `json:"queue_length"`
	RetryLength   int `json:"retry_length"`
	ActiveWorkers int `json:"active_workers"`
}

func (o *Orchestrator) GetQueueStatus() *QueueStatus {
	return &QueueStatus{
		QueueLength:   o.jobQueue.Len(),
		RetryLength:   o.retryQueue.Len(),
		ActiveWorkers: o.pool.Running(),
	}
}

// -----------------------------
// JobQueue (Ring Buffer) + Reject New
// -----------------------------
type jobQueue struct {
	maxSize int
	items   []*Job
	mutex   sync.Mutex
	cond    *sync.Cond
	closed  bool
}

func newJobQueue(maxSize int) *jobQueue {
	q := &jobQueue{
		maxSize: maxSize,
		items:   make([]*Job, 0, maxSize),
	}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

func (q *jobQueue) Enqueue(job *Job) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		return ErrOrchestratorStopped
	}
	if q.maxSize > 0 && len(q.items) >= q.maxSize {
		return ErrQueueFull // Reject New
	}
	q.items = append(q.items, job)
	q.cond.Signal()
	return nil
}

func (q *jobQueue) Dequeue() (*Job, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return job, true
}

func (q *jobQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

func (q *jobQueue) Close() {
	q.mutex.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mutex.Unlock()
}
