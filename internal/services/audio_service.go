// internal/services/audio_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
	"github.com/Voxlit/NovelVoiceStudio/internal/utils"
)

// AudioService 语音合成编排器。
// 单条合成的失败只影响该条段落，批量任务继续推进其余条目。
type AudioService struct {
	Repo       *storage.Repository
	Dialogues  *DialogueService
	Characters *CharacterService
	Chapters   *ChapterService
	Projects   *ProjectService
	Progress   *ProgressService
	Locks      *LockManager

	taskCancels sync.Map // taskID -> context.CancelFunc
	logger      *logrus.Entry
}

// NewAudioService 创建合成服务
func NewAudioService(repo *storage.Repository, dialogues *DialogueService, characters *CharacterService,
	chapters *ChapterService, projects *ProjectService, progress *ProgressService, locks *LockManager) *AudioService {
	return &AudioService{
		Repo:       repo,
		Dialogues:  dialogues,
		Characters: characters,
		Chapters:   chapters,
		Projects:   projects,
		Progress:   progress,
		Locks:      locks,
		logger:     logrus.WithField("service", "audio"),
	}
}

// audioPath 返回段落音频的存放路径
func (s *AudioService) audioPath(projectID, dialogueID string) string {
	return filepath.Join(config.GetCurrentConfig().DataDir, "audio", projectID, dialogueID+".wav")
}

// GenerateDialogueAudio 合成单个段落的音频。
// 段落状态沿 pending/failed→synthesizing→completed/failed 推进，
// 合成失败不返回 error，失败原因记录在段落上。
func (s *AudioService) GenerateDialogueAudio(ctx context.Context, projectID, dialogueID string) (*models.Dialogue, error) {
	dialogue, err := s.Dialogues.GetDialogue(projectID, dialogueID)
	if err != nil {
		return nil, err
	}

	if dialogue.Status == models.DialogueStatusCompleted {
		return dialogue, nil
	}

	synthConfig, err := s.resolveVoice(projectID, dialogue)
	if err != nil {
		return nil, err
	}

	provider, err := tts.Create(synthConfig.Engine, config.GetCurrentConfig().TTSCredentials)
	if err != nil {
		return nil, apperrors.NewNotFoundError("TTS引擎不可用: "+synthConfig.Engine, err)
	}

	if _, err := s.Dialogues.TransitionStatus(projectID, dialogueID, models.DialogueStatusSynthesizing); err != nil {
		return nil, err
	}

	return s.synthesizeOne(ctx, provider, projectID, dialogue, synthConfig)
}

// synthesizeOne 执行一次合成并落盘状态，段落此时必须处于 synthesizing
func (s *AudioService) synthesizeOne(ctx context.Context, provider tts.Provider, projectID string,
	dialogue *models.Dialogue, synthConfig tts.SynthesisConfig) (*models.Dialogue, error) {
	outputPath := s.audioPath(projectID, dialogue.ID)

	start := time.Now()
	result := provider.Synthesize(ctx, dialogue.Content, synthConfig, outputPath)
	utils.GetMetrics().Histogram("synthesis_duration_ms").ObserveDuration(start)

	if result.Success {
		utils.GetMetrics().Counter("synthesis_success").Inc()

		dialogue.Status = models.DialogueStatusCompleted
		dialogue.AudioPath = result.AudioPath
		dialogue.Duration = result.Duration
	} else {
		utils.GetMetrics().Counter("synthesis_failed").Inc()

		dialogue.Status = models.DialogueStatusFailed
		dialogue.AudioPath = ""
		dialogue.Duration = 0

		s.logger.WithFields(logrus.Fields{
			"dialogue_id": dialogue.ID,
			"engine":      synthConfig.Engine,
			"reason":      result.ErrorMessage,
		}).Warn("段落合成失败")
	}
	dialogue.UpdatedAt = time.Now()

	if err := s.Repo.SaveDialogue(projectID, dialogue); err != nil {
		return nil, apperrors.NewProcessingError("保存段落失败", err)
	}

	return dialogue, nil
}

// resolveVoice 解析段落使用的声音配置。
// 对话段落用绑定角色的声音，旁白和未绑定角色的段落用旁白默认声音。
func (s *AudioService) resolveVoice(projectID string, dialogue *models.Dialogue) (tts.SynthesisConfig, error) {
	appConfig := config.GetCurrentConfig()

	profile := &models.VoiceProfile{
		Engine:  appConfig.NarratorEngine,
		VoiceID: appConfig.NarratorVoiceID,
		Speed:   1.0,
		Pitch:   1.0,
		Volume:  1.0,
	}

	if dialogue.CharacterID != "" {
		character, err := s.Characters.GetCharacter(projectID, dialogue.CharacterID)
		if err != nil {
			return tts.SynthesisConfig{}, err
		}
		if character.Voice != nil {
			profile = character.Voice
		}
	}

	synthConfig := tts.SynthesisConfig{
		Engine:  profile.Engine,
		VoiceID: profile.VoiceID,
		Speed:   profile.Speed,
		Pitch:   profile.Pitch,
		Volume:  profile.Volume,
		Emotion: profile.Emotion,
	}

	if !tts.ValidateBounds(synthConfig) {
		return tts.SynthesisConfig{}, apperrors.NewValidationError(
			fmt.Sprintf("段落 %s 的声音配置无效", dialogue.ID), nil)
	}

	return synthConfig, nil
}

// batchJob 批量合成中的一个工作单元
type batchJob struct {
	dialogue *models.Dialogue
	config   tts.SynthesisConfig
	provider tts.Provider
}

// StartBatchGenerate 异步批量合成章节，立即返回任务ID。
// 任务用独立的后台上下文，不随发起它的请求一起取消；
// 进度通过 ProgressService 上报，可经SSE或WebSocket订阅。
func (s *AudioService) StartBatchGenerate(projectID, chapterID string) (string, error) {
	if _, err := s.Chapters.GetChapter(projectID, chapterID); err != nil {
		return "", err
	}

	return s.launchBatch(func(ctx context.Context, tracker *ProgressTracker) (*models.BatchReport, error) {
		return s.BatchGenerateChapter(ctx, projectID, chapterID, tracker)
	}), nil
}

// StartBatchGenerateDialogues 异步批量合成指定的段落集合，立即返回任务ID
func (s *AudioService) StartBatchGenerateDialogues(projectID string, dialogueIDs []string) (string, error) {
	if len(dialogueIDs) == 0 {
		return "", apperrors.NewValidationError("段落ID列表不能为空", nil)
	}

	return s.launchBatch(func(ctx context.Context, tracker *ProgressTracker) (*models.BatchReport, error) {
		return s.BatchGenerateDialogues(ctx, projectID, dialogueIDs, tracker)
	}), nil
}

// launchBatch 在后台运行批量任务，结果经进度追踪器上报
func (s *AudioService) launchBatch(run func(context.Context, *ProgressTracker) (*models.BatchReport, error)) string {
	taskID := uuid.New().String()
	tracker := s.Progress.CreateTracker(taskID)

	taskCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	s.taskCancels.Store(taskID, cancel)

	go func() {
		defer func() {
			cancel()
			s.taskCancels.Delete(taskID)
		}()

		report, err := run(taskCtx, tracker)
		if err != nil {
			tracker.Fail(err.Error())
			return
		}

		switch {
		case len(report.SkippedIDs) > 0:
			tracker.Cancel(fmt.Sprintf("任务取消: 完成 %d, 失败 %d, 跳过 %d",
				report.SuccessCount, report.FailedCount, report.SkippedCount))
		default:
			tracker.Complete(fmt.Sprintf("批量合成完成: 成功 %d, 失败 %d",
				report.SuccessCount, report.FailedCount))
		}
	}()

	return taskID
}

// BatchGenerateChapter 批量合成章节下所有未完成的段落。
// 并发度由配置的 MaxConcurrency 决定，进度回调经追踪器互斥锁串行化。
// 上下文取消后不再派发新条目，未派发的段落记为跳过而非失败。
func (s *AudioService) BatchGenerateChapter(ctx context.Context, projectID, chapterID string, tracker *ProgressTracker) (*models.BatchReport, error) {
	report := &models.BatchReport{FailedItems: []models.BatchFailedItem{}}
	if tracker != nil {
		report.TaskID = tracker.TaskID
	}

	err := s.Locks.ExecuteWithChapterLock(chapterID, func() error {
		dialogues, err := s.Repo.ListDialoguesByChapter(projectID, chapterID)
		if err != nil {
			return err
		}

		// 已完成的段落不重复合成
		var targets []*models.Dialogue
		for _, dialogue := range dialogues {
			if dialogue.Status != models.DialogueStatusCompleted {
				targets = append(targets, dialogue)
			}
		}

		report.Total = len(targets)
		if len(targets) == 0 {
			return nil
		}

		jobs, prepFailed := s.prepareJobs(ctx, projectID, targets)
		report.FailedCount += len(prepFailed)
		report.FailedItems = append(report.FailedItems, prepFailed...)

		s.runPool(ctx, projectID, jobs, tracker, report)

		return s.finishBatch(projectID, chapterID)
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// BatchGenerateDialogues 按给定顺序批量合成指定的段落集合，段落可以跨章节。
// 已完成的段落不重复合成，直接计为成功；找不到的ID计为失败。
func (s *AudioService) BatchGenerateDialogues(ctx context.Context, projectID string, dialogueIDs []string, tracker *ProgressTracker) (*models.BatchReport, error) {
	report := &models.BatchReport{FailedItems: []models.BatchFailedItem{}}
	if tracker != nil {
		report.TaskID = tracker.TaskID
	}

	report.Total = len(dialogueIDs)

	var targets []*models.Dialogue
	chapterIDs := make(map[string]bool)

	for _, id := range dialogueIDs {
		dialogue, err := s.Dialogues.GetDialogue(projectID, id)
		if err != nil {
			report.FailedCount++
			report.FailedItems = append(report.FailedItems, models.BatchFailedItem{ID: id, Reason: err.Error()})
			continue
		}

		chapterIDs[dialogue.ChapterID] = true

		if dialogue.Status == models.DialogueStatusCompleted {
			report.SuccessCount++
			continue
		}

		targets = append(targets, dialogue)
	}

	jobs, prepFailed := s.prepareJobs(ctx, projectID, targets)
	report.FailedCount += len(prepFailed)
	report.FailedItems = append(report.FailedItems, prepFailed...)

	s.runPool(ctx, projectID, jobs, tracker, report)

	for chapterID := range chapterIDs {
		if err := s.finishBatch(projectID, chapterID); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// runPool 用有界工作池执行准备好的合成单元。
// 上下文取消后不再派发：剩余单元记为跳过，段落状态保持不变；
// 已派发的单元换用不可取消的上下文执行，在途合成会正常跑完落盘。
func (s *AudioService) runPool(ctx context.Context, projectID string, jobs []batchJob, tracker *ProgressTracker, report *models.BatchReport) {
	if len(jobs) == 0 {
		return
	}

	maxConcurrency := config.GetCurrentConfig().MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = config.DefaultMaxConcurrency
	}

	var (
		wg         sync.WaitGroup
		reportLock sync.Mutex
	)
	done := report.Total - len(jobs)
	semaphore := make(chan struct{}, maxConcurrency)
	workCtx := context.WithoutCancel(ctx)

	advance := func(success bool, id, reason string) {
		reportLock.Lock()
		defer reportLock.Unlock()

		done++
		if success {
			report.SuccessCount++
		} else {
			report.FailedCount++
			report.FailedItems = append(report.FailedItems, models.BatchFailedItem{ID: id, Reason: reason})
		}

		if tracker != nil {
			tracker.UpdateProgress(done*100/report.Total,
				fmt.Sprintf("已处理 %d/%d", done, report.Total))
		}
	}

	skipFrom := func(rest []batchJob) {
		reportLock.Lock()
		defer reportLock.Unlock()

		for _, skipped := range rest {
			report.SkippedCount++
			report.SkippedIDs = append(report.SkippedIDs, skipped.dialogue.ID)
		}
	}

dispatch:
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			skipFrom(jobs[i:])
			break dispatch
		case semaphore <- struct{}{}:
		}

		// 取消与空位同时就绪时 select 可能仍选中空位，派发前再确认一次
		if ctx.Err() != nil {
			<-semaphore
			skipFrom(jobs[i:])
			break dispatch
		}

		wg.Add(1)

		go func(job batchJob) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := s.Dialogues.TransitionStatus(projectID, job.dialogue.ID, models.DialogueStatusSynthesizing); err != nil {
				advance(false, job.dialogue.ID, err.Error())
				return
			}

			dialogue, err := s.synthesizeOne(workCtx, job.provider, projectID, job.dialogue, job.config)
			if err != nil {
				advance(false, job.dialogue.ID, err.Error())
				return
			}

			if dialogue.Status == models.DialogueStatusCompleted {
				advance(true, dialogue.ID, "")
			} else {
				advance(false, dialogue.ID, "合成失败")
			}
		}(job)
	}

	wg.Wait()
}

// prepareJobs 为每个目标段落解析声音配置并按引擎复用后端实例。
// 配置解析失败的段落直接标记为失败，不进入工作队列。
func (s *AudioService) prepareJobs(ctx context.Context, projectID string, targets []*models.Dialogue) ([]batchJob, []models.BatchFailedItem) {
	providers := make(map[string]tts.Provider)
	credentials := config.GetCurrentConfig().TTSCredentials

	var (
		jobs   []batchJob
		failed []models.BatchFailedItem
	)

	for _, dialogue := range targets {
		synthConfig, err := s.resolveVoice(projectID, dialogue)
		if err != nil {
			failed = append(failed, models.BatchFailedItem{ID: dialogue.ID, Reason: err.Error()})
			continue
		}

		provider, exists := providers[synthConfig.Engine]
		if !exists {
			provider, err = tts.Create(synthConfig.Engine, credentials)
			if err != nil {
				failed = append(failed, models.BatchFailedItem{ID: dialogue.ID, Reason: err.Error()})
				continue
			}

			if !provider.TestConnection(ctx) {
				failed = append(failed, models.BatchFailedItem{ID: dialogue.ID,
					Reason: "TTS引擎连接失败: " + synthConfig.Engine})
				continue
			}

			providers[synthConfig.Engine] = provider
		}

		jobs = append(jobs, batchJob{dialogue: dialogue, config: synthConfig, provider: provider})
	}

	return jobs, failed
}

// finishBatch 批量结束后回写章节状态、时长和角色统计
func (s *AudioService) finishBatch(projectID, chapterID string) error {
	dialogues, err := s.Repo.ListDialoguesByChapter(projectID, chapterID)
	if err != nil {
		return err
	}

	chapter, err := s.Repo.GetChapter(projectID, chapterID)
	if err != nil {
		return err
	}

	totalDuration := 0
	completed := 0
	for _, dialogue := range dialogues {
		if dialogue.Status == models.DialogueStatusCompleted {
			completed++
			totalDuration += dialogue.Duration
		}
	}

	chapter.Duration = totalDuration
	if len(dialogues) > 0 && completed == len(dialogues) {
		chapter.Status = models.ChapterStatusCompleted
	} else {
		chapter.Status = models.ChapterStatusProcessing
	}
	chapter.UpdatedAt = time.Now()

	if err := s.Repo.SaveChapter(chapter); err != nil {
		return err
	}

	if err := s.Characters.RefreshStats(projectID, chapterID); err != nil {
		return err
	}

	_, err = s.Projects.RefreshStats(projectID)
	return err
}

// CancelBatch 取消正在运行的批量任务。
// 已派发的条目会跑完，未派发的条目在报告中记为跳过。
func (s *AudioService) CancelBatch(taskID string) bool {
	value, exists := s.taskCancels.Load(taskID)
	if !exists {
		return false
	}

	value.(context.CancelFunc)()
	return true
}

// DeleteDialogueAudio 删除段落音频文件，段落回到待生成状态
func (s *AudioService) DeleteDialogueAudio(projectID, dialogueID string) error {
	dialogue, err := s.Dialogues.GetDialogue(projectID, dialogueID)
	if err != nil {
		return err
	}

	if dialogue.AudioPath != "" {
		if err := os.Remove(dialogue.AudioPath); err != nil && !os.IsNotExist(err) {
			return apperrors.NewProcessingError("删除音频文件失败", err)
		}
	}

	dialogue.Status = models.DialogueStatusPending
	dialogue.AudioPath = ""
	dialogue.Duration = 0
	dialogue.StartTime = 0
	dialogue.EndTime = 0
	dialogue.UpdatedAt = time.Now()

	return s.Repo.SaveDialogue(projectID, dialogue)
}
