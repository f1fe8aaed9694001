package classify

// Prompt templates for the three classification stages. Each demands a
// strict single-object JSON response; ExtractJSON copes with the formatting
// models wrap around it anyway.

const teachingPrompt = `Please analyze the following text and determine whether the given patent pertains to the educational process. A patent is considered to fall within the educational sphere if its description mentions, for example:
- situations in which a teacher (educator) instructs students,
- the use of pedagogical methods or educational technologies,
- the application of devices or methods for the transmission of knowledge and professional development.
If at least one of these, or a semantically similar, element appears in the description, return true; otherwise, return false.

Format your answer strictly as a JSON structure of the following form:

{
  "teaching_content": true
}

or

{
  "teaching_content": false
}

Here is the text: %s`

const taxonomyPrompt = `Analyze the patent text provided below and classify the described educational technology according to the following taxonomy. Return a JSON response following the structure specified.

**Classification Taxonomy:**

1. Student Engagement and Motivation Technologies (code: "engagement")
   - Aim: Ensure active student participation through gamification, virtual rewards, and interactive platforms.

2. Access and Digital Equality Technologies (code: "access")
   - Aim: Bridge the digital divide by enabling low-bandwidth, offline-capable web applications and adaptive interfaces.

3. Hybrid and Flexible Learning Technologies (code: "hybrid")
   - Aim: Integrate in-person and online learning components through hybrid platforms that manage mixed groups.

4. AI Technologies for Assessment and Learning Analytics (code: "ai_assessment")
   - Aim: Employ AI and machine learning for unbiased assessment, automated grading, proctoring, and comprehensive learning analytics.

5. Teacher Support and Professional Development Technologies (code: "teacher_support")
   - Aim: Assist educators in adapting to remote and hybrid teaching via automation, AI modules, and specialized professional development platforms.

**Response Requirements:**
1. Analyze the provided patent text.
2. Identify its key technological features and determine the appropriate taxonomy code.
3. Return a JSON response with the following structure:
{
  "technology_class": "<compact code>",
  "reason": "<brief justification>"
}

If uncertain about the classification, return:
{
  "technology_class": "Uncertain",
  "reason": "<brief justification>"
}

Provide your response in valid JSON format without additional commentary.

**Patent Text for Analysis:**
%s`

const covidPrompt = `Please analyze the following patent description and determine if it describes a technology or method for teaching or learning that was developed or employed specifically in response to the Covid-19 pandemic.
If the description indicates that the technology or method was developed or used as a response to the Covid-19 pandemic, respond with exactly the following JSON structure:

{
  "is_covid": "covid"
}

Otherwise, respond with exactly the following JSON structure:

{
  "is_covid": "non-covid"
}

Here is the description:
%s`
