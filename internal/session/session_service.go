package session

import (
	"time"

	"github.com/courtside/rally/pkg/logger"
)

// Service maintains the rolling session calendar.
type Service struct {
	repo       Repository
	teams      RegisteredTeamLister
	maxTeams   int
	weeksAhead int
	log        *logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, teams RegisteredTeamLister, maxTeams, defaultWeeksAhead int) *Service {
	return &Service{
		repo:       repo,
		teams:      teams,
		maxTeams:   maxTeams,
		weeksAhead: defaultWeeksAhead,
		log:        logger.Default().With("component", "session"),
		now:        time.Now,
	}
}

// DefaultWeeksAhead is the configured generation horizon.
func (s *Service) DefaultWeeksAhead() int {
	return s.weeksAhead
}

// EnsureUpcomingSessions idempotently materializes the tuesday/wednesday/
// thursday sessions for the next weeksAhead weeks, starting from the Monday
// of the current UTC week. Existing dates are left untouched. Returns the
// number of newly inserted sessions.
func (s *Service) EnsureUpcomingSessions(weeksAhead int) (int, error) {
	if weeksAhead <= 0 {
		weeksAhead = 1
	}
	weekStart := StartOfWeekMonday(s.now())
	inserted := 0

	for weekOffset := 0; weekOffset < weeksAhead; weekOffset++ {
		weekMonday := weekStart.AddDate(0, 0, weekOffset*7)
		weekOf := weekMonday.Format(DateLayout)

		for _, day := range sessionDays {
			date := weekMonday.AddDate(0, 0, day.Offset).Format(DateLayout)
			created, err := s.repo.CreateIfAbsent(&Session{
				Date:     date,
				Day:      day.Label,
				WeekOf:   weekOf,
				MaxTeams: s.maxTeams,
			})
			if err != nil {
				return inserted, err
			}
			if created {
				inserted++
			}
		}
	}

	if inserted > 0 {
		s.log.Info("materialized upcoming sessions", "inserted", inserted, "weeks_ahead", weeksAhead)
	}
	return inserted, nil
}

// ListUpcoming returns today's and future sessions in date order, annotated
// with live team counts.
func (s *Service) ListUpcoming() ([]Summary, error) {
	today := s.now().UTC().Format(DateLayout)
	sessions, err := s.repo.ListFromDate(today)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	counts, err := s.repo.ActiveTeamCounts(ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, len(sessions))
	for i, sess := range sessions {
		summaries[i] = summarize(sess, counts[sess.ID])
	}
	return summaries, nil
}

// GetDetail returns one session with its registered teams, or nil when the
// session does not exist. Absence is a normal navigational outcome, not an
// error.
func (s *Service) GetDetail(id uint) (*Detail, error) {
	sess, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	teams, err := s.teams.RegisteredTeams(sess.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Summary: summarize(*sess, len(teams)),
		Teams:   teams,
	}, nil
}

func summarize(sess Session, teamCount int) Summary {
	spots := sess.MaxTeams - teamCount
	if spots < 0 {
		spots = 0
	}
	return Summary{Session: sess, TeamCount: teamCount, SpotsRemaining: spots}
}
