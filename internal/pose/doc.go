// Package pose turns raw body landmarks into named joint angles and compares
// them against a pre-computed reference track. Two comparison strategies are
// provided: a weighted angle-set comparison for choreographed routines, and a
// movement-aware comparison that also measures motion synchrony and penalizes
// performers who hold a static pose while the reference is moving.
package pose
