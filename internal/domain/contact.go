package domain

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ContactStatusNew is the status every stored message starts with.
const ContactStatusNew = "new"
