package pagetest

// Profile URLs used by the fixtures.
const (
	ProfileURL = "https://www.linkedin.com/in/jane-doe/"
	SkillsURL  = "https://www.linkedin.com/in/jane-doe/details/skills/"
)

// ProfileHTML is a main profile page with header, about, two experiences,
// two education entries and an inline skills section.
const ProfileHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Jane Doe | LinkedIn</title>
  <link rel="canonical" href="https://www.linkedin.com/in/jane-doe/">
</head>
<body>
<main>
  <section data-view-name="profile-card" class="artdeco-card">
    <h1>Jane   Doe</h1>
    <div class="text-body-medium break-words">Staff Engineer at Acme</div>
    <span class="text-body-small inline t-black--light break-words">Berlin, Germany</span>
  </section>

  <section data-view-name="profile-card" class="artdeco-card">
    <div id="about" class="pv-profile-card__anchor"></div>
    <div class="inline-show-more-text"><span aria-hidden="true">I build
      distributed systems.</span></div>
  </section>

  <section data-view-name="profile-card" class="artdeco-card">
    <div id="experience" class="pv-profile-card__anchor"></div>
    <ul>
      <li class="artdeco-list__item">
        <div data-view-name="profile-component-entity">
          <a data-field="experience_company_logo" href="https://www.linkedin.com/company/acme/"><img src="https://media.example.com/acme.png"></a>
          <div class="display-flex">
            <div class="t-bold"><span aria-hidden="true">Senior Engineer</span><span class="visually-hidden">Senior Engineer</span></div>
            <span class="t-14 t-normal"><span aria-hidden="true">Acme Corp · Full-time</span></span>
            <span class="t-14 t-normal t-black--light"><span class="pvs-entity__caption-wrapper"><span aria-hidden="true">Jan 2020 - Present · 4 yrs 5 mos</span></span></span>
            <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Berlin, Germany</span></span>
          </div>
          <div class="inline-show-more-text"><span aria-hidden="true">Built   the ingestion pipeline.</span></div>
          <div data-field="position_contextual_skills_see_details"><strong>Go</strong><strong>Kubernetes</strong></div>
        </div>
      </li>
      <li class="artdeco-list__item">
        <div data-view-name="profile-component-entity">
          <div class="display-flex">
            <div class="t-bold"><span aria-hidden="true">Engineer</span></div>
            <span class="t-14 t-normal"><span aria-hidden="true">Globex</span></span>
            <span class="t-14 t-normal t-black--light"><span class="pvs-entity__caption-wrapper"><span aria-hidden="true">2018 - 2020 · 2 yrs</span></span></span>
          </div>
        </div>
      </li>
    </ul>
  </section>

  <section data-view-name="profile-card" class="artdeco-card">
    <div id="education" class="pv-profile-card__anchor"></div>
    <ul>
      <li class="artdeco-list__item">
        <div data-view-name="profile-component-entity">
          <a class="pvs-entity__image-container--outline-offset" href="https://www.linkedin.com/school/tum/"><img src="https://media.example.com/tum.png"></a>
          <a data-field="education_school" href="https://www.linkedin.com/school/tum/"><div class="t-bold"><span aria-hidden="true">Technical University of Munich</span></div></a>
          <span class="t-14 t-normal"><span aria-hidden="true">Master of Science, Computer Science, Distributed Systems</span></span>
          <span class="t-14 t-normal t-black--light"><span class="pvs-entity__caption-wrapper"><span aria-hidden="true">2014 - 2016</span></span></span>
          <div data-field="education_activities_and_societies"><span aria-hidden="true">Chess club</span></div>
        </div>
      </li>
      <li class="artdeco-list__item">
        <div data-view-name="profile-component-entity">
          <div class="t-bold"><span aria-hidden="true">Open University</span></div>
          <div data-field="education_field_of_study"><span aria-hidden="true">Mathematics</span></div>
        </div>
      </li>
    </ul>
  </section>

  <section data-view-name="profile-card" class="artdeco-card">
    <div id="skills" class="pv-profile-card__anchor"></div>
    <ul>
      <li><div data-view-name="profile-component-entity"><div class="t-bold"><span aria-hidden="true">Go</span></div></div></li>
      <li><div data-view-name="profile-component-entity"><div class="t-bold"><span aria-hidden="true">PostgreSQL</span></div></div></li>
    </ul>
    <a id="navigation-index-Show-all-23-skills" class="artdeco-button artdeco-button--tertiary" href="/in/jane-doe/details/skills/">Show all 23 skills</a>
  </section>
</main>
</body>
</html>`

// SkillsHTML is a skills details page with three entities, the third a
// duplicate of the first.
const SkillsHTML = `<!DOCTYPE html>
<html>
<body>
<main>
  <div class="scaffold-finite-scroll">
    <ul>
      <li>
        <div data-view-name="profile-component-entity">
          <a data-field="skill_page_skill_topic" href="https://www.linkedin.com/search/results/all/?keywords=Go"><div class="t-bold"><span aria-hidden="true">Go</span></div></a>
          <div class="pvs-entity__sub-components">
            <ul>
              <li><span aria-hidden="true">12 endorsements</span></li>
              <li><span aria-hidden="true">Passed LinkedIn Skill Assessment</span></li>
              <li><a href="https://www.linkedin.com/company/acme/"><span aria-hidden="true">Senior Engineer at Acme Corp</span></a></li>
            </ul>
          </div>
        </div>
      </li>
      <li>
        <div data-view-name="profile-component-entity">
          <a data-field="skill_page_skill_topic" href="https://www.linkedin.com/search/results/all/?keywords=Distributed%20Systems"><div class="t-bold"><span aria-hidden="true">Distributed Systems</span></div></a>
          <div class="pvs-entity__sub-components">
            <ul>
              <li><span aria-hidden="true">Endorsed by Max Mustermann</span></li>
            </ul>
          </div>
        </div>
      </li>
      <li>
        <div data-view-name="profile-component-entity">
          <a data-field="skill_page_skill_topic" href="https://www.linkedin.com/search/results/all/?keywords=Go"><div class="t-bold"><span aria-hidden="true">Go</span></div></a>
          <div class="pvs-entity__sub-components">
            <ul>
              <li><span aria-hidden="true">50 endorsements</span></li>
            </ul>
          </div>
        </div>
      </li>
    </ul>
  </div>
</main>
</body>
</html>`

// BareProfileHTML is a main profile page with a name only: no experience,
// education or skills sections.
const BareProfileHTML = `<!DOCTYPE html>
<html>
<body>
<main>
  <section><h1>John Roe</h1></section>
</main>
</body>
</html>`
