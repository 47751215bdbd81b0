// Package mood 心情问卷到目录发现条件的规则引擎
package mood

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Answers 心情问卷，所有字段可选
// binding 标签同时供 gin 表单绑定和 Validate 使用
type Answers struct {
	Mood         string `form:"mood" json:"mood" binding:"omitempty,oneof=Happy Sad Stressed Excited Relaxed Bored Angry"`
	Motivation   string `form:"motivation" json:"motivation" binding:"omitempty,oneof=Yes No Neutral"`
	WatchingWith string `form:"watching_with" json:"watching_with" binding:"omitempty,oneof=Alone Friends Family Partner Kids"`
	Occasion     string `form:"occasion" json:"occasion" binding:"omitempty,oneof='Date Night' Casual Party 'Family Night' None"`
	Time         string `form:"time" json:"time" binding:"omitempty,oneof='Less than 1 hour' '1-2 hours' '2+ hours'"`
	Genre        string `form:"genre" json:"genre" binding:"omitempty,max=64"`
	Tone         string `form:"tone" json:"tone" binding:"omitempty,oneof=Light-hearted Serious Emotional Fun Epic Thought-provoking"`
	Romantic     string `form:"romantic" json:"romantic" binding:"omitempty,oneof=Yes No Maybe"`
	Pace         string `form:"pace" json:"pace" binding:"omitempty,oneof=Fast-paced Slow-paced Balanced"`
	Release      string `form:"release" json:"release" binding:"omitempty,oneof='New (post-2010)' 'Classics (pre-2010)' 'No preference'"`
	Mature       string `form:"mature" json:"mature" binding:"omitempty,oneof=Yes No Neutral"`
}

// Choices 问卷各题的可选项（页面渲染用，Genre 由目录接口提供）
var Choices = map[string][]string{
	"mood":          {"Happy", "Sad", "Stressed", "Excited", "Relaxed", "Bored", "Angry"},
	"motivation":    {"Yes", "No", "Neutral"},
	"watching_with": {"Alone", "Friends", "Family", "Partner", "Kids"},
	"occasion":      {"Date Night", "Casual", "Party", "Family Night", "None"},
	"time":          {"Less than 1 hour", "1-2 hours", "2+ hours"},
	"tone":          {"Light-hearted", "Serious", "Emotional", "Fun", "Epic", "Thought-provoking"},
	"romantic":      {"Yes", "No", "Maybe"},
	"pace":          {"Fast-paced", "Slow-paced", "Balanced"},
	"release":       {"New (post-2010)", "Classics (pre-2010)", "No preference"},
	"mature":        {"Yes", "No", "Neutral"},
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}()

// Validate 校验问卷取值
func (a Answers) Validate() error {
	if err := validate.Struct(a); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s=%q", fe.Field(), fe.Value()))
			}
			return fmt.Errorf("invalid mood answers: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// Empty 是否一题都没有回答
func (a Answers) Empty() bool {
	return a == Answers{}
}
