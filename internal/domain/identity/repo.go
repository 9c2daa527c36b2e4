package identity

// Directory is the slice of the coordinating store the identity service
// depends on. The store keeps users in insertion order and owns id
// generation; credential checks are exact string matches against the stored
// password.
type Directory interface {
	AddUser(u User) bool
	UpdateUser(u User) bool
	User(username string) (User, bool)
	AllUsers() []User
	UserExists(username string) bool
	ValidateCredentials(username, password string) bool
	Doctor(doctorID string) (User, bool)
	Patient(patientID string) (User, bool)
	NextAdminID() string
	NextDoctorID() string
	NextPatientID() string
}
