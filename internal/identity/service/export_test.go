package service

// SetBcryptCost lowers hashing cost so tests run quickly
func (s *IdentityService) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}
