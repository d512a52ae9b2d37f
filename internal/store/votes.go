package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// ErrInvalidVote is returned for a direction other than -1, 0 or +1
var ErrInvalidVote = errors.New("vote direction must be -1, 0 or 1")

// ErrVoteContention is returned when every optimistic attempt lost a race
var ErrVoteContention = errors.New("vote counters changed concurrently")

// errCountersMoved aborts a vote transaction whose counters changed since they were read
var errCountersMoved = errors.New("counters moved")

const maxVoteAttempts = 8

// VoteTally is the report's counters after a vote
type VoteTally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	NetVotes  int `json:"net_votes"`
}

// Vote records userID's vote on a report. Counters are updated in the
// same transaction as the vote row, conditionally on the values read,
// so concurrent voters never overwrite each other. Switching direction
// moves NetVotes by exactly two in a single write.
func (s *Store) Vote(ctx context.Context, reportID, userID string, direction int) (VoteTally, error) {
	if direction < -1 || direction > 1 {
		return VoteTally{}, ErrInvalidVote
	}

	for attempt := 0; attempt < maxVoteAttempts; attempt++ {
		tally, err := s.voteOnce(ctx, reportID, userID, direction)
		if errors.Is(err, errCountersMoved) {
			continue
		}
		return tally, err
	}
	return VoteTally{}, fmt.Errorf("vote on %s: %w", reportID, ErrVoteContention)
}

func (s *Store) voteOnce(ctx context.Context, reportID, userID string, direction int) (VoteTally, error) {
	var tally VoteTally

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report model.Report
		if err := tx.Select("id", "upvotes", "downvotes", "net_votes").First(&report, "id = ?", reportID).Error; err != nil {
			return notFound(err, "report "+reportID)
		}

		previous := 0
		var existing model.Vote
		err := tx.Where("report_id = ? AND user_id = ?", reportID, userID).Take(&existing).Error
		switch {
		case err == nil:
			previous = existing.Direction
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("read vote: %w", err)
		}

		dUp, dDown := voteDelta(previous, direction)
		tally = VoteTally{
			Upvotes:   report.Upvotes + dUp,
			Downvotes: report.Downvotes + dDown,
		}
		tally.NetVotes = tally.Upvotes - tally.Downvotes

		if dUp == 0 && dDown == 0 {
			return nil
		}

		res := tx.Model(&model.Report{}).
			Where("id = ? AND upvotes = ? AND downvotes = ?", reportID, report.Upvotes, report.Downvotes).
			Updates(map[string]any{
				"upvotes":   tally.Upvotes,
				"downvotes": tally.Downvotes,
				"net_votes": tally.NetVotes,
			})
		if res.Error != nil {
			return fmt.Errorf("update counters: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errCountersMoved
		}

		if direction == 0 {
			if err := tx.Delete(&model.Vote{}, "report_id = ? AND user_id = ?", reportID, userID).Error; err != nil {
				return fmt.Errorf("retract vote: %w", err)
			}
			return nil
		}

		vote := model.Vote{ReportID: reportID, UserID: userID, Direction: direction}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).Create(&vote).Error
		if err != nil {
			return fmt.Errorf("write vote: %w", err)
		}
		return nil
	})

	return tally, err
}

// voteDelta returns the change to (upvotes, downvotes) when a user's vote
// moves from previous to next
func voteDelta(previous, next int) (int, int) {
	dUp, dDown := 0, 0
	switch previous {
	case 1:
		dUp--
	case -1:
		dDown--
	}
	switch next {
	case 1:
		dUp++
	case -1:
		dDown++
	}
	return dUp, dDown
}
