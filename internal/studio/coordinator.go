package studio

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProcessAll analyzes the reference once and fans the pose list out to
// concurrent pipelines, at most maxConcurrent at a time. Results are
// streamed on the returned channel as each pose finishes and the channel is
// closed when all are done. Pose pipelines are independent: one failing
// delivers an error PoseResult without affecting the others.
func (e *Engine) ProcessAll(ctx context.Context, refImage []byte, refMIME string, poses []string, maxConcurrent int) (*PersonProfile, <-chan PoseResult, error) {
	if len(poses) == 0 {
		poses = DefaultPoses
	}
	if maxConcurrent <= 0 {
		maxConcurrent = len(poses)
	}

	person, err := e.AnalyzePerson(ctx, refImage, refMIME)
	if err != nil {
		return nil, nil, err
	}

	results := make(chan PoseResult, len(poses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	go func() {
		defer close(results)
		for _, pose := range poses {
			g.Go(func() error {
				photo, err := e.ProcessPose(gctx, refImage, refMIME, pose, person)
				if err != nil {
					log.Error().Err(err).Str("pose", pose).Msg("Pose pipeline failed")
					results <- PoseResult{Pose: pose, Err: err}
					return nil
				}
				results <- PoseResult{Pose: pose, Photo: photo}
				return nil
			})
		}
		g.Wait()
	}()

	return person, results, nil
}
