// Package metrics holds the domain counters. HTTP level metrics live in the
// middleware package.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DailyLoginRewards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_login_rewards_total",
			Help: "Daily login evaluations by outcome",
		},
		[]string{"outcome"},
	)
	QuizAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_total",
			Help: "Finished quiz attempts",
		},
		[]string{"passed"},
	)
	TaskTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transitions_total",
			Help: "Task lifecycle transitions",
		},
		[]string{"to"},
	)
	TokensCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_credited_total",
			Help: "Tokens credited to users",
		},
		[]string{"source"},
	)
	XPCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_credited_total",
			Help: "Experience points credited to users",
		},
		[]string{"source"},
	)
)

func Register(r prometheus.Registerer) {
	r.MustRegister(DailyLoginRewards, QuizAttempts, TaskTransitions, TokensCredited, XPCredited)
}
