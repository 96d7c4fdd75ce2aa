package domain

import "time"

// Role of an account inside a family.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

const (
	FieldAvatarURL = "avatarUrl"
	// FieldAvatarKey is the blob key of an uploaded avatar. Avatars set by URL
	// have none.
	FieldAvatarKey = "avatarKey"

	// MaxAvatarBytes bounds a decoded avatar image.
	MaxAvatarBytes = 5 << 20
)

// Profile is a document in the users collection. Children and parents share
// the collection and are told apart by Role.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	Role        Role      `json:"role"`
	FamilyID    string    `json:"familyId"`
	Age         int       `json:"age,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	AvatarKey   string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProfileFromRecord canonicalizes a raw users document.
func ProfileFromRecord(r Record) Profile {
	p := Profile{
		ID:          r.ID,
		DisplayName: r.String("displayName"),
		Email:       r.String("email"),
		Role:        Role(r.String(FieldRole)),
		FamilyID:    r.String(FieldFamilyID),
		Age:         r.Int("age"),
		AvatarURL:   r.String(FieldAvatarURL),
		AvatarKey:   r.String(FieldAvatarKey),
	}
	if p.DisplayName == "" {
		p.DisplayName = r.String("name")
	}
	p.CreatedAt, _ = ParseTimestamp(r.Fields[FieldCreatedAt])
	p.UpdatedAt, _ = ParseTimestamp(r.Fields[FieldUpdatedAt])
	return p
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	DisplayName string `json:"displayName" validate:"required,max=80"`
	Age         int    `json:"age,omitempty" validate:"omitempty,min=1,max=17"`
	AvatarURL   string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// Fields converts the input to store fields.
func (in ProfileInput) Fields() map[string]any {
	fields := map[string]any{"displayName": in.DisplayName}
	if in.Age > 0 {
		fields["age"] = in.Age
	}
	if in.AvatarURL != "" {
		fields[FieldAvatarURL] = in.AvatarURL
	}
	return fields
}

// ChildInput is what a parent supplies when managing a child account.
type ChildInput struct {
	DisplayName string `json:"displayName" validate:"required,max=80"`
	Age         int    `json:"age" validate:"omitempty,min=1,max=17"`
	AvatarURL   string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// Fields converts the input to store fields of a child account in familyID.
func (in ChildInput) Fields(familyID, parentID string) map[string]any {
	fields := ProfileInput(in).Fields()
	fields[FieldRole] = string(RoleChild)
	fields[FieldFamilyID] = familyID
	fields["parentId"] = parentID
	return fields
}

// AvatarUpload is a base64 encoded profile picture.
type AvatarUpload struct {
	ImageContent string `json:"imageContent" validate:"required,base64"`
	FileName     string `json:"fileName" validate:"required,max=120"`
	ContentType  string `json:"contentType" validate:"required,oneof=image/png image/jpeg image/gif image/webp"`
}
